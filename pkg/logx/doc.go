// Package logx configures riftbot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep
// console output readable (short timestamp + short caller) while callers
// attach typed fields instead of format strings.
package logx
