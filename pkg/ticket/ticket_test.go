package ticket

import "testing"

func TestSignAndVerify(t *testing.T) {
	GenerateSecretKey()

	payload := Payload{UserID: "user-1", ActivityID: "math-counting-1", IssuedAt: 1765000000}
	signature, err := Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if !Verify(payload, signature) {
		t.Fatal("原样的payload应通过验证")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	GenerateSecretKey()

	payload := Payload{UserID: "user-1", ActivityID: "math-counting-1", IssuedAt: 1765000000}
	signature, err := Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tampered := payload
	tampered.ActivityID = "science-space-1"
	if Verify(tampered, signature) {
		t.Fatal("篡改过的payload不应通过验证")
	}

	tampered = payload
	tampered.UserID = "user-2"
	if Verify(tampered, signature) {
		t.Fatal("冒用他人票据不应通过验证")
	}

	tampered = payload
	tampered.IssuedAt++
	if Verify(tampered, signature) {
		t.Fatal("改动签发时间不应通过验证")
	}
}

func TestVerifyRejectsGarbageSignature(t *testing.T) {
	GenerateSecretKey()

	payload := Payload{UserID: "user-1", ActivityID: "math-counting-1", IssuedAt: 1765000000}
	if Verify(payload, "not-base64!!!") {
		t.Fatal("非法Base64签名不应通过验证")
	}
	if Verify(payload, "") {
		t.Fatal("空签名不应通过验证")
	}
}

func TestKeyRotationInvalidatesOldTickets(t *testing.T) {
	GenerateSecretKey()
	payload := Payload{UserID: "user-1", ActivityID: "math-counting-1", IssuedAt: 1765000000}
	signature, err := Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// 密钥只存活在进程内，重新生成后旧票据全部失效
	GenerateSecretKey()
	if Verify(payload, signature) {
		t.Fatal("换过密钥后旧签名不应通过验证")
	}
}
