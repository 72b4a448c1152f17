package refile

import "fmt"

// DefaultChunkCount is used when Split is called without WithChunkCount.
const DefaultChunkCount = 5

// Chunk is a contiguous byte range of the source file together with its
// encrypted form. Index is the 0-based position in read order.
type Chunk struct {
	Index      int
	Plaintext  []byte
	Ciphertext []byte
	IV         IV
}

// chunkSize returns ceil(size/count). A count above size yields one-byte
// chunks. size and count must be positive.
func chunkSize(size int64, count int) int64 {
	n := min(int64(count), size)
	cs := size / n
	if size%n != 0 {
		cs++
	}
	return cs
}

// splitChunks slices data into sequential chunkSize pieces. The last piece
// is short when len(data) is not a multiple of the chunk size, and there
// may be fewer pieces than count when the rounding is aggressive.
func splitChunks(data []byte, count int) ([][]byte, error) {
	if count <= 0 {
		return nil, ErrInvalidChunkCount
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	size := int(chunkSize(int64(len(data)), count))
	pieces := make([][]byte, 0, len(data)/size+1)
	for off := 0; off < len(data); off += size {
		end := min(off+size, len(data))
		pieces = append(pieces, data[off:end])
	}
	return pieces, nil
}

// encryptChunks runs every piece through the cipher.
func encryptChunks(cipher Cipher, key Key, pieces [][]byte) ([]*Chunk, error) {
	chunks := make([]*Chunk, len(pieces))
	for i, p := range pieces {
		ct, iv, err := cipher.Encrypt(p, key)
		if err != nil {
			return nil, fmt.Errorf("encrypting chunk %d: %w", i, err)
		}
		chunks[i] = &Chunk{Index: i, Plaintext: p, Ciphertext: ct, IV: iv}
	}
	return chunks, nil
}

// ChunkSizes returns the plaintext lengths Split would produce for a file of
// the given size.
func ChunkSizes(size int64, count int) []int {
	if size <= 0 || count <= 0 {
		return nil
	}
	cs := chunkSize(size, count)
	sizes := make([]int, 0, size/cs+1)
	for off := int64(0); off < size; off += cs {
		sizes = append(sizes, int(min(cs, size-off)))
	}
	return sizes
}
