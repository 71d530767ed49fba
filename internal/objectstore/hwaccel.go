package objectstore

import "golang.org/x/sys/cpu"

// HasAESHardwareSupport reports whether the current CPU exposes the AES-NI
// (x86) or ARMv8 Crypto Extensions (arm64) instructions the AES-256-GCM
// chunk and header codecs in this package benefit from. Go's crypto/aes
// already dispatches to these instructions automatically; this is purely
// informational (cmd/objectbench logs it at startup).
func HasAESHardwareSupport() bool {
	if cpu.X86.HasAES && cpu.X86.HasPCLMULQDQ {
		return true
	}
	if cpu.ARM64.HasAES {
		return true
	}
	return false
}

// HardwareAccelerationInfo reports the detected acceleration features for
// logging/metrics at startup.
type HardwareAccelerationInfo struct {
	AESNI       bool
	PCLMULQDQ   bool
	ARMv8Crypto bool
	Enabled     bool
}

// GetHardwareAccelerationInfo snapshots the CPU feature bits relevant to
// this module's AEAD workload.
func GetHardwareAccelerationInfo() HardwareAccelerationInfo {
	return HardwareAccelerationInfo{
		AESNI:       cpu.X86.HasAES,
		PCLMULQDQ:   cpu.X86.HasPCLMULQDQ,
		ARMv8Crypto: cpu.ARM64.HasAES,
		Enabled:     HasAESHardwareSupport(),
	}
}
