// README: Backend clients for the bundle store, created only for the scheme a URI uses.
package infra

import (
	"strings"

	"hotelsegments/internal/modules/bundlestore"
)

// NewBundleClients connects what uri needs: Redis for redis://, S3 for s3://.
// The close func is never nil.
func NewBundleClients(uri, redisAddr, awsRegion string) (bundlestore.Clients, func(), error) {
	var c bundlestore.Clients
	closeFn := func() {}
	switch {
	case strings.HasPrefix(uri, "redis://"):
		client, err := NewRedis(redisAddr)
		if err != nil {
			return c, closeFn, err
		}
		c.Redis = client
		closeFn = func() { _ = client.Close() }
	case strings.HasPrefix(uri, "s3://"):
		client, err := NewS3(awsRegion)
		if err != nil {
			return c, closeFn, err
		}
		c.S3 = client
	}
	return c, closeFn, nil
}
