package cli

const (
	DEFAULT_TRACK  = "oval"
	DEFAULT_CARS   = 2
	DEFAULT_MANUAL = 1
	DEFAULT_GAP    = 15.0
)

// DaemonOptions are the root command flags read by the daemon once Handle
// returns.
type DaemonOptions struct {
	Track      string
	Cars       int
	Manual     int
	Gap        float64
	ViewerAddr string
}

var Daemon = DaemonOptions{
	Track:  DEFAULT_TRACK,
	Cars:   DEFAULT_CARS,
	Manual: DEFAULT_MANUAL,
	Gap:    DEFAULT_GAP,
}
