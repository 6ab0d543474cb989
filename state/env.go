// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"hsplit/config"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// used by build and inspect subcommands
	Overwrite bool
	// Rules is a preset name or rule set file, overrides configuration
	Rules string
	// Title overrides book title from the rule set
	Title string
	// CodePage is forced encoding for non UTF-8 file names in archives
	CodePage encoding.Encoding
	// SourceEncoding is forced encoding of the source document
	SourceEncoding encoding.Encoding
	PageTemplate   []byte
	Stylesheet     []byte

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// RulesName returns rule set requested on command line or in configuration.
func (e *LocalEnv) RulesName() string {
	if e.Rules != "" {
		return e.Rules
	}
	if e.Cfg != nil {
		return e.Cfg.Document.Rules
	}
	return ""
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
		e.restoreStdLog = nil
	}
}
