package cipher_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/subcrack/internal/cipher"
)

func TestNewAlphabetRejectsDuplicates(t *testing.T) {
	_, err := cipher.NewAlphabet("ABCA")
	require.Error(t, err)

	_, err = cipher.NewAlphabet("")
	require.ErrorIs(t, err, cipher.ErrEmptyAlphabet)
}

func TestNormalize(t *testing.T) {
	a := cipher.DefaultAlphabet()
	require.Equal(t, "HELLOWORLD", a.Normalize("Hello, World! 42"))
	require.Equal(t, "", a.Normalize("1234 ;;"))
}

func TestNewKeyValidation(t *testing.T) {
	a := cipher.DefaultAlphabet()

	cases := map[string]string{
		"short":     "ABC",
		"duplicate": "AACDEFGHIJKLMNOPQRSTUVWXYZ",
		"foreign":   "ABCDEFGHIJKLMNOPQRSTUVWXY1",
	}
	for name, subs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := cipher.NewKey(a, subs)
			require.ErrorIs(t, err, cipher.ErrInvalidKey)
		})
	}

	k, err := cipher.NewKey(a, "qwertyuiopasdfghjklzxcvbnm")
	require.NoError(t, err)
	require.Equal(t, "QWERTYUIOPASDFGHJKLZXCVBNM", k.String())
}

func TestKeyFromIndicesRejectsNonBijection(t *testing.T) {
	a, err := cipher.NewAlphabet("ABC")
	require.NoError(t, err)

	_, err = cipher.KeyFromIndices(a, []int{0, 0, 1})
	require.True(t, errors.Is(err, cipher.ErrInvalidKey))

	_, err = cipher.KeyFromIndices(a, []int{0, 1, 3})
	require.ErrorIs(t, err, cipher.ErrInvalidKey)
}

func TestEncryptDirection(t *testing.T) {
	a := cipher.DefaultAlphabet()
	k, err := cipher.NewKey(a, "BCDEFGHIJKLMNOPQRSTUVWXYZA")
	require.NoError(t, err)

	require.Equal(t, "IBM", cipher.Encrypt("HAL", k))
	require.Equal(t, "HAL", cipher.Decrypt("IBM", k))
	require.Equal(t, "Ifmmp, Xpsme!", cipher.Encrypt("Hello, World!", k))
}

func TestRoundTrip(t *testing.T) {
	a := cipher.DefaultAlphabet()
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		k := cipher.RandomKey(a, rnd)
		require.True(t, k.Valid())

		n := rnd.Intn(64)
		buf := make([]rune, n)
		for j := range buf {
			buf[j] = a.Symbol(rnd.Intn(a.Size()))
		}
		s := string(buf)
		require.Equal(t, s, cipher.Decrypt(cipher.Encrypt(s, k), k))
	}
}

func TestSwapKeepsBijection(t *testing.T) {
	a := cipher.DefaultAlphabet()
	rnd := rand.New(rand.NewSource(11))
	k := cipher.RandomKey(a, rnd)
	for i := 0; i < 5000; i++ {
		x, y := rnd.Intn(a.Size()), rnd.Intn(a.Size())
		next := k.Swap(x, y)
		require.True(t, next.Valid())
		k = next
	}
	require.Equal(t, "THEQUICK", cipher.Decrypt(cipher.Encrypt("THEQUICK", k), k))
}

func TestInverse(t *testing.T) {
	a := cipher.DefaultAlphabet()
	k := cipher.RandomKey(a, rand.New(rand.NewSource(3)))
	inv := k.Inverse()
	require.Equal(t, "ATTACKATDAWN", cipher.Encrypt(cipher.Encrypt("ATTACKATDAWN", k), inv))
	require.Equal(t, k.String(), inv.Inverse().String())
}

func TestDecryptIndices(t *testing.T) {
	a := cipher.DefaultAlphabet()
	k := cipher.RandomKey(a, rand.New(rand.NewSource(5)))
	ct := cipher.Encrypt("FLEEATONCE", k)
	got := cipher.DecryptIndices(nil, a.Indices(ct), k)
	require.Equal(t, "FLEEATONCE", a.FromIndices(got))
}
