package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/wippyai/wasm-loader/errors"
)

// SchemeObjectStore is the URL scheme served by ObjectStore.
const SchemeObjectStore = "s3"

// ObjectStoreConfig holds the S3-compatible endpoint settings.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// ObjectStore fetches s3://bucket/key artifacts.
type ObjectStore struct {
	client *minio.Client
}

func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.InvalidInput(errors.PhaseConfig, "object store endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			URL(cfg.Endpoint).
			Cause(err).
			Detail("create object store client").
			Build()
	}
	return &ObjectStore{client: client}, nil
}

func (o *ObjectStore) Fetch(ctx context.Context, req Request) ([]byte, error) {
	bucket, key, err := ParseObjectURL(req.URL)
	if err != nil {
		return nil, err
	}

	obj, err := o.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, objectError(req.URL, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, objectError(req.URL, err)
	}
	return data, nil
}

// ParseObjectURL splits s3://bucket/key into its bucket and key.
func ParseObjectURL(raw string) (bucket, key string, err error) {
	u, perr := url.Parse(raw)
	if perr != nil || u.Scheme != SchemeObjectStore {
		return "", "", errors.New(errors.PhaseFetch, errors.KindInvalidInput).
			URL(raw).
			Cause(perr).
			Detail("not an object URL: %s", raw).
			Build()
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.New(errors.PhaseFetch, errors.KindInvalidInput).
			URL(raw).
			Detail("object URL needs bucket and key: %s", raw).
			Build()
	}
	return u.Host, key, nil
}

func objectError(raw string, err error) error {
	if resp := minio.ToErrorResponse(err); resp.StatusCode != 0 {
		return errors.Status(raw, resp.StatusCode)
	}
	return errors.Transport(raw, err)
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
