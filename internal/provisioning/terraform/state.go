package terraform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/imamik/netfabric/internal/platform/s3"
	"github.com/imamik/netfabric/internal/provisioning"
)

// StateFile is the local state file name inside a stage directory.
const StateFile = "terraform.tfstate"

type stateDocument struct {
	Outputs provisioning.Outputs `json:"outputs"`
}

// ParseState extracts the outputs from a Terraform state document.
func ParseState(data []byte) (provisioning.Outputs, error) {
	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse terraform state: %w", err)
	}
	if doc.Outputs == nil {
		return provisioning.Outputs{}, nil
	}
	return doc.Outputs, nil
}

// LocalStateReader reads terraform.tfstate from the stage directory.
type LocalStateReader struct{}

// ReadOutputs implements StateReader. A missing state file yields no outputs.
func (LocalStateReader) ReadOutputs(_ context.Context, dir string) (provisioning.Outputs, error) {
	file := filepath.Join(dir, StateFile)
	// #nosec G304 - file is in the configured stage directory
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return provisioning.Outputs{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return ParseState(data)
}

// ObjectGetter fetches an object body. *s3.Client implements it.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// S3StateReader reads state objects written by an S3 remote backend.
type S3StateReader struct {
	Client ObjectGetter
	Bucket string

	// Keys maps a stage directory to its state object key.
	Keys map[string]string
}

// ReadOutputs implements StateReader. A missing object yields no outputs.
func (r *S3StateReader) ReadOutputs(ctx context.Context, dir string) (provisioning.Outputs, error) {
	key, ok := r.Keys[dir]
	if !ok {
		return nil, fmt.Errorf("no state key configured for %s", dir)
	}

	data, err := r.Client.GetObject(ctx, r.Bucket, key)
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			return provisioning.Outputs{}, nil
		}
		return nil, err
	}
	return ParseState(data)
}

// StateKey returns the object key <prefix>/<stage>/terraform.tfstate.
// An empty prefix places the stage at the bucket root.
func StateKey(prefix, stage string) string {
	return path.Join(prefix, stage, StateFile)
}
