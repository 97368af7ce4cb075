package history

import (
	"context"

	apperrors "github.com/matzehuels/algoviz/pkg/errors"
)

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Options selects and configures a store.
type Options struct {
	Backend    string `mapstructure:"backend"`
	Dir        string `mapstructure:"dir"`
	MongoURI   string `mapstructure:"mongo_uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// Open creates the store named by opts.Backend. An empty backend means file.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Dir)
	case BackendMongo:
		if opts.MongoURI == "" {
			return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "mongo history requires a URI")
		}
		return DialMongo(ctx, opts.MongoURI, opts.Database, opts.Collection)
	case BackendNone:
		return NewNullStore(), nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeUnsupported,
			"unknown history backend %q (want file, mongo or none)", opts.Backend)
	}
}
