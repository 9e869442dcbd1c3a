package services

import (
	"crypto/rand"
	"encoding/hex"
)

// generateRandomToken возвращает hex-строку из n случайных байт.
// Используется для кодов доступа команд и ключей файлов.
func generateRandomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
