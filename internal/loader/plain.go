package loader

import "context"

type plainLoader struct{}

func (l *plainLoader) Load(ctx context.Context, data []byte) (string, error) {
	return string(data), nil
}
