package tgplat

import (
	"testing"

	"github.com/gotd/td/tg"
)

func TestMessagesOf(t *testing.T) {
	tests := []struct {
		name string
		res  tg.MessagesMessagesClass
		want []int
	}{
		{
			name: "plain result",
			res: &tg.MessagesMessages{Messages: []tg.MessageClass{
				&tg.Message{ID: 3},
				&tg.Message{ID: 2},
			}},
			want: []int{3, 2},
		},
		{
			name: "slice result",
			res: &tg.MessagesMessagesSlice{Messages: []tg.MessageClass{
				&tg.Message{ID: 10},
			}},
			want: []int{10},
		},
		{
			name: "channel result skips empty entries",
			res: &tg.MessagesChannelMessages{Messages: []tg.MessageClass{
				&tg.Message{ID: 7},
				&tg.MessageEmpty{ID: 6},
				&tg.Message{ID: 5},
			}},
			want: []int{7, 5},
		},
		{
			name: "not modified",
			res:  &tg.MessagesMessagesNotModified{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := messagesOf(tt.res)
			if len(got) != len(tt.want) {
				t.Fatalf("messagesOf returned %d messages, want %d", len(got), len(tt.want))
			}
			for i, m := range got {
				if m.ID != tt.want[i] {
					t.Errorf("message %d has id %d, want %d", i, m.ID, tt.want[i])
				}
			}
		})
	}
}

func TestNewMessageIDOf(t *testing.T) {
	tests := []struct {
		name    string
		updates tg.UpdatesClass
		want    int
	}{
		{
			// Topic creation answers with a service message announcing the
			// new thread; its id is the topic id.
			name: "service message in channel update",
			updates: &tg.Updates{Updates: []tg.UpdateClass{
				&tg.UpdateNewChannelMessage{Message: &tg.MessageService{ID: 42}},
			}},
			want: 42,
		},
		{
			name: "plain message in channel update",
			updates: &tg.Updates{Updates: []tg.UpdateClass{
				&tg.UpdateNewChannelMessage{Message: &tg.Message{ID: 17}},
			}},
			want: 17,
		},
		{
			name: "new message update",
			updates: &tg.Updates{Updates: []tg.UpdateClass{
				&tg.UpdateNewMessage{Message: &tg.Message{ID: 8}},
			}},
			want: 8,
		},
		{
			name: "message id update",
			updates: &tg.Updates{Updates: []tg.UpdateClass{
				&tg.UpdateMessageID{ID: 99},
			}},
			want: 99,
		},
		{
			name:    "no usable update",
			updates: &tg.Updates{Updates: []tg.UpdateClass{&tg.UpdateChannel{}}},
			want:    0,
		},
		{
			name:    "non batched updates",
			updates: &tg.UpdatesTooLong{},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newMessageIDOf(tt.updates); got != tt.want {
				t.Errorf("newMessageIDOf = %d, want %d", got, tt.want)
			}
		})
	}
}
