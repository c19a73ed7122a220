package emu

import "errors"

// ErrMisalignedFetch is reported when the PC is not a multiple of 4.
var ErrMisalignedFetch = errors.New("misaligned instruction fetch")

// Image is a read-only program image. Instruction i lives at address 4*i.
type Image struct {
	Words []uint32

	// Text holds optional display text per instruction. Missing or empty
	// entries are rendered by the disassembler.
	Text []string
}

// NewImage creates an image from machine words and optional display text.
func NewImage(words []uint32, text []string) *Image {
	return &Image{Words: words, Text: text}
}

// Len returns the number of instructions in the image.
func (im *Image) Len() int {
	return len(im.Words)
}

// End returns the first address past the last instruction.
func (im *Image) End() uint32 {
	return uint32(len(im.Words)) * 4
}

// Contains reports whether pc addresses an instruction of the image.
func (im *Image) Contains(pc uint32) bool {
	return pc&3 == 0 && pc < im.End()
}

// Fetch returns the word and display text at pc. ok is false when pc is
// misaligned or outside the image.
func (im *Image) Fetch(pc uint32) (word uint32, text string, ok bool) {
	if !im.Contains(pc) {
		return 0, "", false
	}

	idx := pc / 4
	if int(idx) < len(im.Text) {
		text = im.Text[idx]
	}
	return im.Words[idx], text, true
}
