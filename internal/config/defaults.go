package config

const (
	defaultConfigPath           = "~/.config/sedori/config.toml"
	defaultDataDir              = "~/.local/share/sedori"
	defaultLogDir               = "~/.local/share/sedori/logs"
	defaultDebugDir             = "~/.local/share/sedori/debug"
	defaultStoreBackend         = "json"
	defaultMinSimilarity        = 70.0
	defaultMinProfitMargin      = 20.0
	defaultExchangeRate         = 0.0067
	defaultFeeRate              = 0.13
	defaultShippingEstimate     = 15.0
	defaultSourceCurrency       = "JPY"
	defaultTargetCurrency       = "USD"
	defaultPreset               = "listing"
	defaultWorkingSize          = 400
	defaultMinKeypoints         = 10
	defaultMaxKeypoints         = 500
	defaultTitleWeight          = 0.15
	defaultTitleBand            = 5.0
	defaultGeometricMinInliers  = 8
	defaultGeometricPenalty     = 0.5
	defaultWorkers              = 4
	defaultBulkTransitionPolicy = "strict"
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			DebugDir: defaultDebugDir,
		},
		Store: Store{
			Backend: defaultStoreBackend,
		},
		Thresholds: Thresholds{
			MinSimilarity:   defaultMinSimilarity,
			MinProfitMargin: defaultMinProfitMargin,
		},
		Profit: Profit{
			ExchangeRate:     defaultExchangeRate,
			FeeRate:          defaultFeeRate,
			ShippingEstimate: defaultShippingEstimate,
			SourceCurrency:   defaultSourceCurrency,
			TargetCurrency:   defaultTargetCurrency,
		},
		Matching: Matching{
			Preset:              defaultPreset,
			WorkingSize:         defaultWorkingSize,
			MinKeypoints:        defaultMinKeypoints,
			MaxKeypoints:        defaultMaxKeypoints,
			TitleWeight:         defaultTitleWeight,
			TitleBand:           defaultTitleBand,
			GeometricMinInliers: defaultGeometricMinInliers,
			GeometricPenalty:    defaultGeometricPenalty,
			Workers:             defaultWorkers,
		},
		Workflow: Workflow{
			BulkTransitionPolicy: defaultBulkTransitionPolicy,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Ingest:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
