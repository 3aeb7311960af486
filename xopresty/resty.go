/*
Package xopresty propagates the trace context through requests made
with a resty client.

The Bundle comes from the request's context (see xoptrace.IntoContext),
so set it with (*resty.Request).SetContext.
*/
package xopresty

import (
	"github.com/xoplog/secondary-sampling-go/xopprop"
	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var _ resty.Logger = restyLogger{}

type restyLogger struct {
	log *zap.SugaredLogger
}

func (rl restyLogger) Errorf(format string, v ...interface{}) { rl.log.Errorf(format, v...) }
func (rl restyLogger) Warnf(format string, v ...interface{})  { rl.log.Warnf(format, v...) }
func (rl restyLogger) Debugf(format string, v ...interface{}) { rl.log.Debugf(format, v...) }

// Wrap modifies client to inject the trace context of each request.  When
// logger is not nil, resty's own logging goes to it.
func Wrap(client *resty.Client, prop xopprop.Propagation, logger *zap.Logger) (*resty.Client, error) {
	inject, err := prop.Injector(xopprop.HeaderSetter)
	if err != nil {
		return nil, errors.Wrap(err, "outbound injector")
	}
	if logger != nil {
		client = client.SetLogger(restyLogger{log: logger.Sugar()})
	}
	return client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		b, ok := xoptrace.FromContext(r.Context())
		if !ok {
			return nil
		}
		return inject(b, r.Header)
	}), nil
}
