package webrtc

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"

	"github.com/avtools/playout/pkg/logger"
)

// pionLog funnels the pion transport logs into the app logger.
type pionLog struct {
	log *logger.Logger
}

func pionLogger(root *logger.Logger, level int) pionLog {
	return pionLog{log: root.Extend(root.Level(zerolog.Level(level)).With())}
}

func (p pionLog) NewLogger(scope string) logging.LeveledLogger {
	return pionLog{log: p.log.Extend(p.log.With().Str("pion", scope))}
}

func (p pionLog) at(level zerolog.Level) *zerolog.Event { return p.log.WithLevel(level) }

func (p pionLog) Trace(msg string)                  { p.at(zerolog.TraceLevel).Msg(msg) }
func (p pionLog) Tracef(format string, args ...any) { p.at(zerolog.TraceLevel).Msgf(format, args...) }
func (p pionLog) Debug(msg string)                  { p.at(zerolog.DebugLevel).Msg(msg) }
func (p pionLog) Debugf(format string, args ...any) { p.at(zerolog.DebugLevel).Msgf(format, args...) }
func (p pionLog) Info(msg string)                   { p.at(zerolog.InfoLevel).Msg(msg) }
func (p pionLog) Infof(format string, args ...any)  { p.at(zerolog.InfoLevel).Msgf(format, args...) }
func (p pionLog) Warn(msg string)                   { p.at(zerolog.WarnLevel).Msg(msg) }
func (p pionLog) Warnf(format string, args ...any)  { p.at(zerolog.WarnLevel).Msgf(format, args...) }
func (p pionLog) Error(msg string)                  { p.at(zerolog.ErrorLevel).Msg(msg) }
func (p pionLog) Errorf(format string, args ...any) { p.at(zerolog.ErrorLevel).Msgf(format, args...) }
