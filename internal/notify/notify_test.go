package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"crparser/internal/config"
	"crparser/internal/domain"
	"crparser/internal/notify"
	"crparser/mocks"
)

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	first := new(mocks.MockNotifier)
	second := new(mocks.MockNotifier)
	n := domain.Notification{JobID: uuid.New(), Status: domain.NotificationFinished}

	first.On("Notify", mock.Anything, n).Return(errors.New("webhook down"))
	second.On("Notify", mock.Anything, n).Return(nil)

	err := notify.Multi(first, second).Notify(context.Background(), n)

	assert.EqualError(t, err, "webhook down")
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := notify.New(context.Background(), &config.NotifyConfig{EmailProvider: "pigeon"})

	assert.Error(t, err)
}

func TestNew_Noop(t *testing.T) {
	n, err := notify.New(context.Background(), &config.NotifyConfig{EmailProvider: "noop"})

	assert.NoError(t, err)
	assert.NotNil(t, n)
}
