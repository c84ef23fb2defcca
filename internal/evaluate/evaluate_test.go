package evaluate_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/subcrack/internal/cipher"
	"github.com/verte-zerg/subcrack/internal/evaluate"
)

func TestTextAccuracy(t *testing.T) {
	m := evaluate.Evaluate("the quick", "THE QUACK", nil, nil)
	require.Equal(t, 8, m.Compared)
	require.InDelta(t, 87.5, m.TextAccuracy, 1e-9)
	require.Nil(t, m.KeyAccuracy)
}

func TestTextAccuracyTruncatesToShorter(t *testing.T) {
	m := evaluate.Evaluate("ABCDEF", "ABC", nil, nil)
	require.Equal(t, 3, m.Compared)
	require.Equal(t, 100.0, m.TextAccuracy)

	m = evaluate.Evaluate("", "ABC", nil, nil)
	require.Equal(t, 0, m.Compared)
	require.Equal(t, 0.0, m.TextAccuracy)
}

func TestKeyAccuracy(t *testing.T) {
	a := cipher.DefaultAlphabet()
	truth, err := cipher.NewKey(a, "BCDEFGHIJKLMNOPQRSTUVWXYZA")
	require.NoError(t, err)

	m := evaluate.Evaluate("X", "X", &truth, &truth)
	require.NotNil(t, m.KeyAccuracy)
	require.Equal(t, 100.0, *m.KeyAccuracy)

	swapped := truth.Swap(0, 1)
	m = evaluate.Evaluate("X", "X", &swapped, &truth)
	require.NotNil(t, m.KeyAccuracy)
	require.InDelta(t, 24.0/26.0*100, *m.KeyAccuracy, 1e-9)

	m = evaluate.Evaluate("X", "X", &swapped, nil)
	require.Nil(t, m.KeyAccuracy)
}

func TestAccuracyBounds(t *testing.T) {
	a := cipher.DefaultAlphabet()
	rnd := rand.New(rand.NewSource(21))
	for i := 0; i < 500; i++ {
		k1 := cipher.RandomKey(a, rnd)
		k2 := cipher.RandomKey(a, rnd)
		text := a.FromIndices(rnd.Perm(a.Size()))
		m := evaluate.Evaluate(cipher.Encrypt(text, k1), text, &k1, &k2)
		require.GreaterOrEqual(t, m.TextAccuracy, 0.0)
		require.LessOrEqual(t, m.TextAccuracy, 100.0)
		require.NotNil(t, m.KeyAccuracy)
		require.GreaterOrEqual(t, *m.KeyAccuracy, 0.0)
		require.LessOrEqual(t, *m.KeyAccuracy, 100.0)
	}
}
