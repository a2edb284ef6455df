package config

const (
	defaultSaveDir          = "~/.local/share/rookery/processed_nests"
	defaultLogDir           = "~/.local/share/rookery/logs"
	defaultStateDir         = "~/.local/share/rookery"
	defaultMinScore         = 0.3
	defaultMinDetections    = 3
	defaultMinConsecDetects = 1
	defaultOutputFormat     = "gpkg"
	defaultCRS              = "EPSG:32617"
	defaultBatchWorkers     = 4
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// OutputFormats lists the accepted nests.output_format values.
var OutputFormats = []string{"gpkg", "geojson", "csv"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SaveDir:  defaultSaveDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Nests: Nests{
			MinScore:         defaultMinScore,
			MinDetections:    defaultMinDetections,
			MinConsecDetects: defaultMinConsecDetects,
			OutputFormat:     defaultOutputFormat,
			DefaultCRS:       defaultCRS,
		},
		Batch: Batch{
			Workers: defaultBatchWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
