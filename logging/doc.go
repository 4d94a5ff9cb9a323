// Package logging builds the zap logger shared by the transport, the authenticator and the inventory
// synchronizer.
//
// Level debug selects zap's development config, which also logs every request the transport sends. Any other
// level uses the production config. Format selects json (default) or console output.
//
//	log, err := logging.New(&logging.Config{Level: "info", Format: "console"})
package logging
