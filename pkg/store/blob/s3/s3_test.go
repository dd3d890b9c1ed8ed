package s3

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

type putObjectMock struct {
	mock.Mock
}

func (m *putObjectMock) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestStore_PutsObjectUnderPrefix(t *testing.T) {
	client := &putObjectMock{}
	var body string
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "reports" &&
			aws.ToString(in.Key) == "airregi/a.csv" &&
			aws.ToString(in.ContentType) == "text/csv"
	})).Run(func(args mock.Arguments) {
		data, _ := io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
		body = string(data)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	id, err := New(client, "airregi/").Store(context.Background(), "a.csv", []byte("1,2\n"), "reports")

	require.NoError(t, err)
	assert.Equal(t, "s3://reports/airregi/a.csv", id)
	assert.Equal(t, "1,2\n", body)
	client.AssertExpectations(t)
}

func TestStore_WrapsFailure(t *testing.T) {
	client := &putObjectMock{}
	cause := errors.New("AccessDenied")
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, cause)

	_, err := New(client, "").Store(context.Background(), "a.csv", nil, "reports")

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
}
