package zone

import (
	"go.uber.org/zap"

	"github.com/solumlabs/sigbag/signal"
)

type Option func(*options)

type options struct {
	onError signal.OnErrorFunc
	logger  *zap.Logger
}

// WithOnError routes query failures and subscriber callback errors from
// the zone's signals to fn.
func WithOnError(fn signal.OnErrorFunc) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithLogger sets the logger used by the default error handler.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func resolveOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.onError == nil {
		logger := o.logger
		o.onError = func(_ any, err error) {
			logger.Warn("zone error", zap.Error(err))
		}
	}
	return o
}

func (o options) signalOpts() []signal.Option {
	return []signal.Option{signal.WithOnError(o.onError)}
}
