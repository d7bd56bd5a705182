package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_Push(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	assert.True(s.Empty())

	s.Push(12345)
	assert.False(s.Empty())
	assert.Equal(1, s.Len())
	assert.Equal(Word(12345), s.Data[0])
}

func TestStack_Pop(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Push(1234)
	s.Push(WORD_MAX)

	val, ok := s.Pop()
	assert.True(ok)
	assert.Equal(WORD_MAX, val)
	assert.Equal(1, s.Len())

	val, ok = s.Pop()
	assert.True(ok)
	assert.Equal(Word(1234), val)
	assert.Equal(0, s.Len())
}

func TestStack_Pop_Empty(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	val, ok := s.Pop()
	assert.False(ok)
	assert.Equal(Word(0), val)
}

func TestStack_Peek(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Push(1234)
	s.Push(5678)

	val, ok := s.Peek()
	assert.True(ok)
	assert.Equal(Word(5678), val)
	assert.Equal(2, s.Len())
}

func TestStack_Peek_Empty(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	val, ok := s.Peek()
	assert.False(ok)
	assert.Equal(Word(0), val)
}

func TestStack_Reset(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Push(1234)
	s.Push(5678)
	assert.Equal(2, s.Len())

	s.Reset()
	assert.True(s.Empty())
	assert.Equal(0, s.Len())

	// Reset of an empty stack is harmless.
	s.Reset()
	assert.True(s.Empty())
}

func TestStack_Unbounded(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	for i := range 2 * MEMORY_SIZE {
		s.Push(Word(i % MODULUS))
	}
	assert.Equal(2*MEMORY_SIZE, s.Len())

	for i := 2*MEMORY_SIZE - 1; i >= 0; i-- {
		val, ok := s.Pop()
		assert.True(ok)
		if val != Word(i%MODULUS) {
			assert.Equal(Word(i%MODULUS), val)
			break
		}
	}
	assert.True(s.Empty())
}
