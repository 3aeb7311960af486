package xopgrpc

import (
	"strings"

	"github.com/xoplog/secondary-sampling-go/xopprop"

	"github.com/pkg/errors"
	"google.golang.org/grpc/metadata"
)

var (
	_ xopprop.Getter = MetadataGetter
	_ xopprop.Setter = MetadataSetter
)

// MetadataGetter reads from metadata.MD.  Repeated values are joined
// with ",".  Use xopprop.Lowercase keys with metadata.
func MetadataGetter(carrier interface{}, key string) (string, bool) {
	md, ok := carrier.(metadata.MD)
	if !ok {
		return "", false
	}
	values := md.Get(key)
	if len(values) == 0 {
		return "", false
	}
	return strings.Join(values, ","), true
}

func MetadataSetter(carrier interface{}, key string, value string) error {
	md, ok := carrier.(metadata.MD)
	if !ok || md == nil {
		return errors.Wrapf(xopprop.ErrCarrierType, "%T", carrier)
	}
	md.Set(key, value)
	return nil
}
