package tgutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/celestix/gotgproto/ext"
	"github.com/duke-git/lancet/v2/validator"
)

// ParseChatID accepts a numeric chat id or an @username and resolves it to
// a chat id known to the session.
func ParseChatID(ctx *ext.Context, idOrUsername string) (int64, error) {
	idOrUsername = strings.TrimPrefix(idOrUsername, "@")
	if validator.IsIntStr(idOrUsername) {
		chatID, err := strconv.ParseInt(idOrUsername, 10, 64)
		if err != nil {
			return 0, err
		}
		return chatID, nil
	}
	chat, err := ctx.ResolveUsername(idOrUsername)
	if err != nil {
		return 0, err
	}
	if chat == nil {
		return 0, fmt.Errorf("no chat found for username: %s", idOrUsername)
	}
	chatID := chat.GetID()
	if chatID == 0 {
		return 0, fmt.Errorf("chat ID is zero for username: %s", idOrUsername)
	}
	return chatID, nil
}
