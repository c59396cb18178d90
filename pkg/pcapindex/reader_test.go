package pcapindex

import (
	"errors"
	"io"
	"math/rand"
	"os"
	"sync"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/pcapidx/internal/capturetest"
	"github.com/ssargent/pcapidx/pkg/capture"
)

func TestReader_Get(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	r := openFixture(t, NewOpener(OpenerConfig{}), path)

	require.Equal(t, 10, r.Len())
	assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())
	assert.Equal(t, path, r.Path())

	tests := []struct {
		index  int
		length int
	}{
		{0, 117},
		{9, 120},
		{3, 70},
		{1, 269},
		{5, 217},
	}

	for _, tt := range tests {
		pkt, err := r.Get(tt.index)
		require.NoError(t, err, "record %d", tt.index)
		assert.Equal(t, tt.length, pkt.CaptureLength(), "record %d", tt.index)
		assert.Equal(t, capturetest.FixtureOffsets[tt.index], pkt.Offset)
		assert.Equal(t, capturetest.Payload(tt.index, tt.length), pkt.Data)
	}
}

func TestReader_GetOutOfRange(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	r := openFixture(t, NewOpener(OpenerConfig{}), path)

	for _, i := range []int{10, 11, 1000, -1} {
		pkt, err := r.Get(i)
		assert.Nil(t, pkt)
		assert.ErrorIs(t, err, ErrOutOfRange, "index %d", i)
	}

	// An out of range Get leaves the cursor alone
	_, err := r.Get(2)
	require.NoError(t, err)
	_, err = r.Get(10)
	require.ErrorIs(t, err, ErrOutOfRange)

	pkt, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, capturetest.FixtureOffsets[3], pkt.Offset)
}

func TestReader_GetMatchesSequentialRead(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	o := NewOpener(OpenerConfig{})

	seq := openFixture(t, o, path)
	var sequential []*capture.Packet
	for {
		pkt, err := seq.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sequential = append(sequential, pkt)
	}
	require.Len(t, sequential, 10)

	r := openFixture(t, o, path)
	for i := len(sequential) - 1; i >= 0; i-- {
		pkt, err := r.Get(i)
		require.NoError(t, err)
		assert.Equal(t, sequential[i], pkt, "record %d", i)
	}
}

func TestReader_NextYieldsAllRecordsThenEOF(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	r := openFixture(t, NewOpener(OpenerConfig{}), path)

	for i, want := range capturetest.FixtureLengths {
		pkt, err := r.Next()
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, want, pkt.CaptureLength(), "record %d", i)
	}

	for i := 0; i < 3; i++ {
		pkt, err := r.Next()
		assert.Nil(t, pkt)
		assert.Equal(t, io.EOF, err)
	}
}

func TestReader_CursorIsShared(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	r := openFixture(t, NewOpener(OpenerConfig{}), path)

	_, err := r.Get(3)
	require.NoError(t, err)

	pkt, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, capturetest.FixtureOffsets[4], pkt.Offset)

	_, err = r.Get(9)
	require.NoError(t, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)

	require.NoError(t, r.Rewind())
	pkt, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, capturetest.FixtureOffsets[0], pkt.Offset)
}

func TestReader_Iterator(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	r := openFixture(t, NewOpener(OpenerConfig{}), path)

	it := r.Iterator()
	defer it.Close()

	var lengths []int
	for it.Next() {
		lengths = append(lengths, it.Packet().CaptureLength())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, capturetest.FixtureLengths, lengths)
}

func TestReader_OffsetsIsACopy(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	r := openFixture(t, NewOpener(OpenerConfig{}), path)

	offsets := r.Offsets()
	offsets[0] = 999

	pkt, err := r.Get(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(capture.GlobalHeaderSize), pkt.Offset)
}

func TestReader_GetOnTruncatedCapture(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	openFixture(t, NewOpener(OpenerConfig{}), path)

	require.NoError(t, os.Truncate(path, capturetest.FixtureSize-10))

	// Trust the stored table so the truncation is only seen on read
	r := openFixture(t, NewOpener(OpenerConfig{SkipSourceCheck: true}), path)
	require.False(t, r.Rebuilt())
	require.Equal(t, 10, r.Len())

	_, err := r.Get(0)
	require.NoError(t, err)

	pkt, err := r.Get(9)
	assert.Nil(t, pkt)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, err, capture.ErrFormat)
}

func TestReader_IndependentReadersConcurrently(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	o := NewOpener(OpenerConfig{})
	openFixture(t, o, path)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()

			r, err := o.Open(path)
			if err != nil {
				errs <- err
				return
			}
			defer r.Close()

			rng := rand.New(rand.NewSource(seed))
			for n := 0; n < 200; n++ {
				i := rng.Intn(r.Len())
				pkt, err := r.Get(i)
				if err != nil {
					errs <- err
					return
				}
				if pkt.CaptureLength() != capturetest.FixtureLengths[i] {
					errs <- errors.New("length mismatch")
					return
				}
			}
		}(int64(w))
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestReader_SharedReaderIsSafe(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	r := openFixture(t, NewOpener(OpenerConfig{}), path)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				i := (w + n) % r.Len()
				pkt, err := r.Get(i)
				if assert.NoError(t, err) {
					assert.Equal(t, capturetest.FixtureLengths[i], pkt.CaptureLength())
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestReader_LinkTypeDuringGet(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	r := openFixture(t, NewOpener(OpenerConfig{}), path)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := 0; n < 200; n++ {
			_, err := r.Get(n % r.Len())
			assert.NoError(t, err)
		}
	}()

	for {
		select {
		case <-done:
			assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())
			return
		default:
			assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())
		}
	}
}

func TestReader_Verify(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())

	t.Run("consistent", func(t *testing.T) {
		r := openFixture(t, NewOpener(OpenerConfig{}), path)
		n, err := r.Verify()
		require.NoError(t, err)
		assert.Equal(t, 10, n)
	})

	t.Run("table longer than capture", func(t *testing.T) {
		openFixture(t, NewOpener(OpenerConfig{}), path)
		capturetest.Write(t, path, capturetest.FixtureLengths[:3])

		r := openFixture(t, NewOpener(OpenerConfig{SkipSourceCheck: true}), path)
		require.Equal(t, 10, r.Len())

		n, err := r.Verify()
		assert.ErrorIs(t, err, ErrMismatch)
		assert.Equal(t, 3, n)
	})
}

func TestReader_Close(t *testing.T) {
	path := capturetest.WriteFixture(t, t.TempDir())
	r, err := NewOpener(OpenerConfig{}).Open(path)
	require.NoError(t, err)

	require.NoError(t, r.Close())

	_, err = r.Get(0)
	assert.Error(t, err)
}
