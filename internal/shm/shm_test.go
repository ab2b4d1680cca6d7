package shm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	buf, err := Create(4096)
	require.NoError(t, err)
	defer buf.Close()

	require.Len(t, buf.Data(), 4096)
	assert.Equal(t, 4096, buf.Size())
	assert.GreaterOrEqual(t, buf.FD(), 0)

	// Zero-initialized and writable.
	assert.Equal(t, byte(0), buf.Data()[0])
	buf.Data()[4095] = 0x42
	assert.Equal(t, byte(0x42), buf.Data()[4095])
}

func TestCreateInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Create(size)
		require.Error(t, err)
		var allocErr *AllocationError
		assert.ErrorAs(t, err, &allocErr)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	buf, err := Create(64)
	require.NoError(t, err)

	require.NoError(t, buf.Close())
	require.NoError(t, buf.Close())
	assert.Nil(t, buf.Data())
}
