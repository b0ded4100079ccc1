// Package entropy provides the random sources used to fill junk regions and
// draw magic header values.
package entropy

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"awgobfs/internal/metrics"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/sys/cpu"
)

// Entropy classes
const (
	ClassCrypto = "crypto"
	ClassFast   = "fast"
)

// Entropy methods
const (
	MethodAESCTR     = "aes-ctr"
	MethodChaCha20   = "chacha20"
	MethodCryptoRand = "crypto-rand"
)

var (
	// Crypto reads straight from crypto/rand. Junk modifiers and magic
	// headers use it unless a caller injects another reader.
	Crypto *EntropySource
	// Fast is a keystream generator reseeded from crypto/rand, for bulk filler.
	Fast *EntropySource
)

func init() {
	Crypto = NewEntropySource(ClassCrypto)
	Fast = NewEntropySource(ClassFast)
}

const reseedThreshold = 1024 * 1024 // 1 MiB

// EntropySource is an io.Reader safe for concurrent use.
type EntropySource struct {
	class         string
	method        string
	generator     generator
	reseedCounter atomic.Uint64
	mu            sync.Mutex
}

type generator interface {
	Read(p []byte) (n int, err error)
	Reseed() error
}

// NewEntropySource creates a new entropy source for the given class.
// Unknown classes get crypto/rand.
func NewEntropySource(class string) *EntropySource {
	method := MethodCryptoRand
	var gen generator

	if class == ClassFast {
		if cpu.X86.HasAES || cpu.ARM64.HasAES {
			method = MethodAESCTR
			gen = newAESCTRGenerator()
		} else {
			method = MethodChaCha20
			gen = newChaCha20Generator()
		}
	} else {
		class = ClassCrypto
		gen = cryptoRandGenerator{}
	}

	metrics.SetEntropyMethod(method, true)

	return &EntropySource{
		class:     class,
		method:    method,
		generator: gen,
	}
}

func (s *EntropySource) Class() string  { return s.class }
func (s *EntropySource) Method() string { return s.method }

func (s *EntropySource) Read(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err = s.generator.Read(p)
	if err != nil {
		return n, err
	}

	metrics.AddEntropyBytes(int64(n), s.class)

	if s.class == ClassCrypto {
		return n, nil
	}
	newVal := s.reseedCounter.Add(uint64(n))
	if newVal >= reseedThreshold {
		s.reseedCounter.Store(0)
		_ = s.generator.Reseed()
		metrics.IncEntropyReseeds()
	}

	return n, nil
}

// Uint32n returns a uniform value in [0, n) from s. n must be > 0.
func (s *EntropySource) Uint32n(n uint32) uint32 { return Uint32n(s, n) }

// Uint32Inclusive returns a uniform value in [lo, hi] from s.
func (s *EntropySource) Uint32Inclusive(lo, hi uint32) uint32 { return Uint32Inclusive(s, lo, hi) }

// Fill fills p from r. Random sources are assumed infallible; a failing
// reader is a broken process, not a recoverable condition.
func Fill(r io.Reader, p []byte) {
	if len(p) == 0 {
		return
	}
	if _, err := io.ReadFull(r, p); err != nil {
		panic(fmt.Sprintf("entropy: random source failed: %v", err))
	}
}

// Uint32 reads one uint32 from r.
func Uint32(r io.Reader) uint32 {
	var b [4]byte
	Fill(r, b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// Uint32n returns a uniform value in [0, n) read from r, rejecting the
// biased tail of the 32-bit space. It returns 0 when n is 0.
func Uint32n(r io.Reader, n uint32) uint32 {
	if n <= 1 {
		return 0
	}
	// (2^32 - n) % n, the count of values that would skew the modulo.
	threshold := -n % n
	for {
		v := Uint32(r)
		if v >= threshold {
			return v % n
		}
	}
}

// Uint32Inclusive returns a uniform value in [lo, hi] read from r.
// Callers guarantee lo <= hi.
func Uint32Inclusive(r io.Reader, lo, hi uint32) uint32 {
	if lo >= hi {
		return lo
	}
	span := hi - lo
	if span == math.MaxUint32 {
		return Uint32(r)
	}
	return lo + Uint32n(r, span+1)
}

// AES-CTR generator
type aesCTRGenerator struct {
	stream cipher.Stream
}

func newAESCTRGenerator() *aesCTRGenerator {
	g := &aesCTRGenerator{}
	_ = g.Reseed()
	return g
}

func (g *aesCTRGenerator) Reseed() error {
	var seed [32]byte
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return err
	}
	block, err := aes.NewCipher(seed[:16])
	if err != nil {
		return err
	}
	g.stream = cipher.NewCTR(block, seed[16:])
	return nil
}

func (g *aesCTRGenerator) Read(p []byte) (n int, err error) {
	clear(p)
	g.stream.XORKeyStream(p, p)
	return len(p), nil
}

// ChaCha20 generator
type chacha20Generator struct {
	cipher *chacha20.Cipher
}

func newChaCha20Generator() *chacha20Generator {
	g := &chacha20Generator{}
	_ = g.Reseed()
	return g
}

func (g *chacha20Generator) Reseed() error {
	var seed [chacha20.KeySize + chacha20.NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return err
	}
	c, err := chacha20.NewUnauthenticatedCipher(seed[:chacha20.KeySize], seed[chacha20.KeySize:])
	if err != nil {
		return err
	}
	g.cipher = c
	return nil
}

func (g *chacha20Generator) Read(p []byte) (n int, err error) {
	clear(p)
	g.cipher.XORKeyStream(p, p)
	return len(p), nil
}

// Crypto rand generator
type cryptoRandGenerator struct{}

func (cryptoRandGenerator) Read(p []byte) (n int, err error) {
	return rand.Read(p)
}

func (cryptoRandGenerator) Reseed() error {
	return nil
}
