package global

import (
	"hash/crc32"
)

// HashPartition 把任意 key 映射到 [0, numPartitions)；同一 key 永远落在同一分片。
func HashPartition(key string, numPartitions int) int32 {
	if numPartitions <= 0 {
		return 0
	}
	checksum := crc32.ChecksumIEEE([]byte(key))
	return int32(checksum % uint32(numPartitions))
}

// PresenceKey 在线状态在 Redis 中的 key。
func PresenceKey(userID string) string {
	return "presence:user:" + userID
}

