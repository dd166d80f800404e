package mocks

import (
	"context"

	"vidstory-server/internal/messaging"

	"github.com/stretchr/testify/mock"
)

// Mock ClipTaskPublisher
type ClipTaskPublisher struct {
	mock.Mock
}

func (m *ClipTaskPublisher) PublishClipTask(ctx context.Context, payload messaging.ClipTaskPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
