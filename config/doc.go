// Package config loads the ringtail configuration from TOML files and keeps it
// current while the process runs.
//
// # Loading
//
// Load decodes a file over Default, applies RINGTAIL_* environment overrides and
// validates the result. Keys missing from the file keep their defaults; unknown
// keys are rejected.
//
//	cfg, err := config.Load("ringtail.toml")
//	if err != nil {
//		return err
//	}
//
// A Loader merges several files, later layers overriding earlier ones:
//
//	l := config.NewLoader()
//	l.AddLayer("/etc/ringtail/base.toml")
//	l.AddLayer("ringtail.local.toml")
//	cfg, err := l.Load()
//
// # File Format
//
//	[buffer]
//	capacity = 1000
//	overflow_policy = "drop_oldest" # drop_newest, block
//
//	[tail]
//	lines = 10
//	follow = false
//	poll_interval = "1s"
//
//	[metrics]
//	enabled = false
//	port = 9090
//	path = "/metrics"
//
//	[log]
//	level = "info"  # debug, info, warn, error
//	format = "text" # json, text
//
// # Environment Overrides
//
// RINGTAIL_BUFFER_CAPACITY, RINGTAIL_BUFFER_OVERFLOW_POLICY, RINGTAIL_TAIL_LINES and
// RINGTAIL_METRICS_PORT override the file. Setting the metrics port also enables
// the metrics endpoint.
//
// # Dynamic Configuration
//
// Manager watches the file with fsnotify and reloads it on every write. Subscribers
// receive one Update per changed section:
//
//	cm, err := config.NewManager(path, cfg, logger)
//	if err != nil {
//		return err
//	}
//	if err := cm.Start(ctx); err != nil {
//		return err
//	}
//	defer cm.Stop(5 * time.Second)
//
//	for update := range cm.OnChange(config.SectionLog) {
//		levelVar.Set(parseLevel(update.Config.Log.Level))
//	}
//
// A file that fails to parse or validate is logged and ignored; the previous
// configuration stays in effect.
package config
