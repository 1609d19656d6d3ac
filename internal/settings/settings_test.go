package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestThresholdsDefaultUnset(t *testing.T) {
	s := openTestStore(t)

	th, err := s.Thresholds(100)
	require.NoError(t, err)
	require.False(t, th.Set)
}

func TestSetAndReadThresholds(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetThresholds(100, 5, 15))
	th, err := s.Thresholds(100)
	require.NoError(t, err)
	require.True(t, th.Set)
	require.Equal(t, 5, th.Red)
	require.Equal(t, 15, th.Yellow)

	// Перезапись
	require.NoError(t, s.SetThresholds(100, 3, 10))
	th, err = s.Thresholds(100)
	require.NoError(t, err)
	require.Equal(t, 3, th.Red)
	require.Equal(t, 10, th.Yellow)

	// Чаты изолированы
	other, err := s.Thresholds(200)
	require.NoError(t, err)
	require.False(t, other.Set)
}

func TestSetThresholdsValidation(t *testing.T) {
	s := openTestStore(t)

	require.Error(t, s.SetThresholds(100, 10, 5))
	require.Error(t, s.SetThresholds(100, -1, 5))

	// Равные пороги допустимы
	require.NoError(t, s.SetThresholds(100, 5, 5))
}

func TestToggleCabinet(t *testing.T) {
	s := openTestStore(t)

	on, err := s.ToggleCabinet(100, "wb-main")
	require.NoError(t, err)
	require.True(t, on)

	on, err = s.ToggleCabinet(100, "ozon-main")
	require.NoError(t, err)
	require.True(t, on)

	keys, err := s.SelectedCabinets(100)
	require.NoError(t, err)
	require.Equal(t, []string{"ozon-main", "wb-main"}, keys)

	// Повторное переключение снимает выбор
	on, err = s.ToggleCabinet(100, "wb-main")
	require.NoError(t, err)
	require.False(t, on)

	keys, err = s.SelectedCabinets(100)
	require.NoError(t, err)
	require.Equal(t, []string{"ozon-main"}, keys)
}

func TestClearCabinets(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ToggleCabinet(100, "wb-main")
	require.NoError(t, err)
	require.NoError(t, s.ClearCabinets(100))

	keys, err := s.SelectedCabinets(100)
	require.NoError(t, err)
	require.Empty(t, keys)
}
