package memdev

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeek(t *testing.T) {
	assertT := assert.New(t)

	dev := New()
	_, err := dev.Write([]byte("0123456789"))
	assertT.NoError(err)

	o, err := dev.Seek(-1, io.SeekStart)
	assertT.Error(err)
	assertT.EqualValues(0, o)

	o, err = dev.Seek(0, io.SeekStart)
	assertT.NoError(err)
	assertT.EqualValues(0, o)

	o, err = dev.Seek(5, io.SeekCurrent)
	assertT.NoError(err)
	assertT.EqualValues(5, o)

	o, err = dev.Seek(-2, io.SeekEnd)
	assertT.NoError(err)
	assertT.EqualValues(8, o)

	// Seeking past the end is allowed, the hole materializes on write.
	o, err = dev.Seek(100, io.SeekStart)
	assertT.NoError(err)
	assertT.EqualValues(100, o)
	assertT.EqualValues(10, dev.Size())
}

func TestReadWrite(t *testing.T) {
	assertT := assert.New(t)

	dev := New()
	assertT.EqualValues(0, dev.Size())

	n, err := dev.Write([]byte("hello"))
	assertT.NoError(err)
	assertT.Equal(5, n)
	assertT.EqualValues(5, dev.Size())

	_, err = dev.Seek(0, io.SeekStart)
	assertT.NoError(err)

	buf := make([]byte, 5)
	n, err = dev.Read(buf)
	assertT.NoError(err)
	assertT.Equal(5, n)
	assertT.Equal([]byte("hello"), buf)

	// Reading at the end reports EOF.
	_, err = dev.Read(buf)
	assertT.ErrorIs(err, io.EOF)
}

func TestGrowthThroughHole(t *testing.T) {
	assertT := assert.New(t)

	dev := New()
	_, err := dev.Seek(8, io.SeekStart)
	assertT.NoError(err)

	n, err := dev.Write([]byte("xy"))
	assertT.NoError(err)
	assertT.Equal(2, n)
	assertT.EqualValues(10, dev.Size())

	_, err = dev.Seek(0, io.SeekStart)
	assertT.NoError(err)

	buf := make([]byte, 10)
	_, err = io.ReadFull(dev, buf)
	assertT.NoError(err)
	assertT.Equal(append(make([]byte, 8), 'x', 'y'), buf)
}
