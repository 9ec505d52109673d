package audio_test

import (
	"testing"

	"github.com/alkime/storytime/internal/audio"
	"github.com/stretchr/testify/require"
)

func TestLevelRing_Write(t *testing.T) {
	t.Parallel()

	buf := audio.NewLevelRing(10)
	buf.Write([]int16{1, 2, 3, 4, 5})

	require.Equal(t, []int16{1, 2, 3, 4, 5}, buf.Read(5))
	require.Equal(t, 5, buf.Count())
}

func TestLevelRing_WriteEmpty(t *testing.T) {
	t.Parallel()

	buf := audio.NewLevelRing(10)
	buf.Write([]int16{})

	require.Equal(t, 0, buf.Count())
	require.Nil(t, buf.Read(5))
}

func TestLevelRing_Wraparound(t *testing.T) {
	t.Parallel()

	buf := audio.NewLevelRing(5)

	// 7 samples into 5 slots drops the first 2
	buf.Write([]int16{1, 2, 3, 4, 5, 6, 7})

	require.Equal(t, []int16{3, 4, 5, 6, 7}, buf.Read(5))
	require.Equal(t, []int16{6, 7}, buf.Read(2))
	require.Equal(t, 5, buf.Count())
}

func TestLevelRing_ReadMoreThanAvailable(t *testing.T) {
	t.Parallel()

	buf := audio.NewLevelRing(8)
	buf.Write([]int16{9, 8})

	require.Equal(t, []int16{9, 8}, buf.Read(100))
	require.Nil(t, buf.Read(0))
}

func TestLevelRing_Reset(t *testing.T) {
	t.Parallel()

	buf := audio.NewLevelRing(4)
	buf.Write([]int16{1, 2, 3})
	buf.Reset()

	require.Equal(t, 0, buf.Count())
	buf.Write([]int16{7})
	require.Equal(t, []int16{7}, buf.Read(4))
}

func TestBytesToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want []int16
	}{
		{name: "empty", in: nil, want: nil},
		{name: "single byte ignored", in: []byte{0x01}, want: nil},
		{name: "little endian", in: []byte{0x01, 0x00, 0xff, 0xff}, want: []int16{1, -1}},
		{name: "trailing odd byte", in: []byte{0x00, 0x01, 0x05}, want: []int16{256}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, audio.BytesToInt16(tt.in))
		})
	}
}
