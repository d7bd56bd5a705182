package io

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// IMAGE_WORDS is the largest image, in 16-bit words.
const IMAGE_WORDS = 32768

// ReadImage reads a headerless image of little-endian 16-bit words.
func ReadImage(r io.Reader) (words []uint16, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		err = errors.Wrap(err, "ReadImage")
		return
	}

	if len(data)%2 != 0 {
		err = errors.Wrapf(ErrImageOdd, "ReadImage: %d bytes", len(data))
		return
	}

	if len(data)/2 > IMAGE_WORDS {
		err = errors.Wrapf(ErrImageLarge, "ReadImage: %d words", len(data)/2)
		return
	}

	words = make([]uint16, len(data)/2)
	for n := range words {
		words[n] = binary.LittleEndian.Uint16(data[n*2:])
	}

	return
}

// WriteImage writes words as a headerless image of little-endian 16-bit words.
func WriteImage(w io.Writer, words []uint16) (err error) {
	if len(words) > IMAGE_WORDS {
		err = errors.Wrapf(ErrImageLarge, "WriteImage: %d words", len(words))
		return
	}

	data := make([]byte, len(words)*2)
	for n, word := range words {
		binary.LittleEndian.PutUint16(data[n*2:], word)
	}

	_, err = w.Write(data)
	if err != nil {
		err = errors.Wrap(err, "WriteImage")
	}

	return
}

// LoadImageFile reads an image from the named file.
func LoadImageFile(fileName string) (words []uint16, err error) {
	inf, err := os.Open(fileName)
	if err != nil {
		err = errors.Wrap(err, "LoadImageFile")
		return
	}
	defer inf.Close()

	words, err = ReadImage(inf)
	if err != nil {
		err = errors.Wrap(err, fileName)
	}

	return
}

// SaveImageFile writes an image to the named file.
func SaveImageFile(fileName string, words []uint16) (err error) {
	ouf, err := os.Create(fileName)
	if err != nil {
		err = errors.Wrap(err, "SaveImageFile")
		return
	}

	err = WriteImage(ouf, words)
	if err != nil {
		ouf.Close()
		err = errors.Wrap(err, fileName)
		return
	}

	err = ouf.Close()
	if err != nil {
		err = errors.Wrap(err, fileName)
	}

	return
}
