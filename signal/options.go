package signal

import "go.uber.org/zap"

// OnErrorFunc receives failures raised by subscriber callbacks during a
// drain round. from identifies the failing subscription.
type OnErrorFunc func(from any, err error)

type Option func(*options)

type options struct {
	onError OnErrorFunc
	logger  *zap.Logger
}

// WithOnError routes callback errors and recovered panics to fn instead
// of the default logging handler.
func WithOnError(fn OnErrorFunc) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithLogger sets the logger used by the default error handler. Without
// it, callback failures are dropped into a zap.NewNop.
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
			logger.Warn("subscriber callback failed", zap.Error(err))
		}
	}
	return o
}
