package journal

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// badgerLogger routes badger's printf-style messages into zerolog. Badger
// reports routine table and compaction activity at info, so that is demoted
// to debug.
type badgerLogger struct {
	log zerolog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func newBadgerLogger(log zerolog.Logger) *badgerLogger {
	return &badgerLogger{log: log.With().Str("component", "badger").Logger()}
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.log.Error().Msg(trimMsg(format, args))
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.log.Warn().Msg(trimMsg(format, args))
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.log.Debug().Msg(trimMsg(format, args))
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.log.Trace().Msg(trimMsg(format, args))
}

func trimMsg(format string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
