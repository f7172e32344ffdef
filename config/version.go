package config

// injected by '-X' flag:
// go build -ldflags "-X github.com/krau/TopicDex-Bot/config.Version=${VERSION}"
var (
	Version   string = "dev"
	BuildTime string = "unknown"
	GitCommit string = "unknown"
)
