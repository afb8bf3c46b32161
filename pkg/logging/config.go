package logging

const (
	BaseDataDir   = "data"
	LogsDir       = "logs"
	LogFileFormat = "2006-01-02.log" // for daily files
	TimeFormat    = "2006-01-02 15:04:05"
)

// ProcessName scopes log output to a directory per binary
type ProcessName string

const (
	LedgerProcess ProcessName = "ledger"
	TestProcess   ProcessName = "test"
)

type LoggerConfig struct {
	// LogDir overrides BaseDataDir when set
	LogDir        string
	ProcessName   ProcessName
	IsDevelopment bool
	// DisableFile keeps output on the console only
	DisableFile bool

	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

func NewDefaultConfig(processName ProcessName) LoggerConfig {
	return LoggerConfig{
		LogDir:        BaseDataDir,
		ProcessName:   processName,
		IsDevelopment: true,
		MaxSizeMB:     50,
		MaxAgeDays:    14,
		MaxBackups:    10,
	}
}
