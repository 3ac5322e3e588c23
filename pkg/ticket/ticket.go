package ticket

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// secretKey 是服务器在启动时生成的32字节密钥。
var secretKey []byte

// Payload 定义了活动票据中被签名的数据。
// 开始活动时由服务端签发，完成活动时随请求带回，
// 防止客户端伪造从未开始过的活动完成记录。
type Payload struct {
	UserID     string `json:"u"`
	ActivityID string `json:"a"`
	IssuedAt   int64  `json:"t"` // Unix秒
}

// GenerateSecretKey 生成一个密码学安全的32字节随机密钥。
func GenerateSecretKey() {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		panic("无法生成安全的密钥: " + err.Error())
	}
	secretKey = key
	fmt.Println("HMAC密钥已成功生成。")
}

// Sign 为一个给定的Payload生成HMAC-SHA256签名，返回Base64编码字符串。
func Sign(payload Payload) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", errors.New("无法序列化票据payload")
	}

	mac := hmac.New(sha256.New, secretKey)
	mac.Write(payloadBytes)
	signature := mac.Sum(nil)

	return base64.RawURLEncoding.EncodeToString(signature), nil
}

// Verify 验证payload和签名是否匹配。
func Verify(payload Payload, signatureB64 string) bool {
	// 重新序列化payload，确保与签名时的数据格式完全一致
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secretKey)
	mac.Write(payloadBytes)
	expectedSignature := mac.Sum(nil)

	actualSignature, err := base64.RawURLEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}

	// hmac.Equal做时间恒定的比较，防止时序攻击
	return hmac.Equal(expectedSignature, actualSignature)
}
