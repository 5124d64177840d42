package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
)

func buildCacheKey(modelName, taskType, text string) (key string, contentHash string) {
	sum := sha256.Sum256([]byte(text))
	contentHash = hex.EncodeToString(sum[:])
	return modelName + "|" + taskType + "|" + contentHash, contentHash
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
