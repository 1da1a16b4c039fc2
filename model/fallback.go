package model

// FallbackDataset returns the canned circuits shown while the server is
// unreachable. Each call returns a fresh value.
func FallbackDataset() Dataset {
	return NewDataset(
		CircuitRecord{
			CircuitID:           "1",
			PowerCapacity:       1500,
			PowerProduction:     1187.42,
			PowerConsumed:       1012.8,
			PowerMaxConsumed:    1340.5,
			BatteryDifferential: 174.62,
			BatteryPercent:      63.48,
			BatteryCapacity:     400,
			BatteryTimeEmpty:    "00:00:00",
			BatteryTimeFull:     "00:04:41",
		},
		CircuitRecord{
			CircuitID:           "2",
			PowerCapacity:       750,
			PowerProduction:     750,
			PowerConsumed:       812.25,
			PowerMaxConsumed:    905,
			BatteryDifferential: -62.25,
			BatteryPercent:      21.9,
			BatteryCapacity:     200,
			BatteryTimeEmpty:    "00:42:13",
			BatteryTimeFull:     "00:00:00",
		},
		CircuitRecord{
			CircuitID:           "3",
			PowerCapacity:       0,
			PowerProduction:     0,
			PowerConsumed:       0,
			PowerMaxConsumed:    120,
			BatteryDifferential: 0,
			BatteryPercent:      0,
			BatteryCapacity:     0,
			BatteryTimeEmpty:    "00:00:00",
			BatteryTimeFull:     "00:00:00",
			FuseTriggered:       true,
		},
	)
}
