// Package kmipmanager adapts a real KMIP 2.x server (Cosmian KMS or
// compatible) to the objectstore.KeyManager interface the KMIPWrapped
// KeySource mode depends on.
package kmipmanager

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/ovh/kmip-go"
	"github.com/ovh/kmip-go/kmipclient"
	"github.com/ovh/kmip-go/payloads"

	"github.com/kenneth/zerostash-objectstore/internal/objectstore"
)

// Config points at a KMIP server and the symmetric key used to wrap
// archive master keys.
type Config struct {
	Addr     string
	TLS      *tls.Config
	WrapKeyID string // KMIP unique identifier of the pre-provisioned wrapping key
}

// Manager implements objectstore.KeyManager against a live KMIP server.
type Manager struct {
	client    kmipclient.Client
	wrapKeyID string
}

// Dial connects to the KMIP server named in cfg.
func Dial(ctx context.Context, cfg Config) (*Manager, error) {
	client, err := kmipclient.Dial(cfg.Addr, kmipclient.WithTLSConfig(cfg.TLS))
	if err != nil {
		return nil, fmt.Errorf("dialing kmip server: %w", err)
	}
	return &Manager{client: client, wrapKeyID: cfg.WrapKeyID}, nil
}

func (m *Manager) Provider() string { return "kmip" }

// WrapKey encrypts plaintext under the server-managed wrapping key,
// returning an envelope that can be handed back to UnwrapKey later.
func (m *Manager) WrapKey(ctx context.Context, plaintext []byte, metadata map[string]string) (*objectstore.KeyEnvelope, error) {
	resp, err := m.client.Encrypt(ctx, payloads.EncryptRequestPayload{
		UniqueIdentifier: kmip.String(m.wrapKeyID),
		Data:             plaintext,
		CryptographicParameters: &kmip.CryptographicParameters{
			CryptographicAlgorithm: kmip.CryptographicAlgorithmAES,
			BlockCipherMode:        kmip.BlockCipherModeGCM,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("kmip encrypt: %w", err)
	}
	version, err := m.ActiveKeyVersion(ctx)
	if err != nil {
		return nil, err
	}
	return &objectstore.KeyEnvelope{
		Ciphertext: append(resp.IVCounterNonce, resp.Data...),
		KeyID:      m.wrapKeyID,
		KeyVersion: version,
	}, nil
}

// UnwrapKey reverses WrapKey, recovering the original plaintext.
func (m *Manager) UnwrapKey(ctx context.Context, envelope *objectstore.KeyEnvelope, metadata map[string]string) ([]byte, error) {
	if len(envelope.Ciphertext) < 12 {
		return nil, fmt.Errorf("kmip envelope ciphertext too short")
	}
	resp, err := m.client.Decrypt(ctx, payloads.DecryptRequestPayload{
		UniqueIdentifier: kmip.String(envelope.KeyID),
		Data:             envelope.Ciphertext[12:],
		IVCounterNonce:   envelope.Ciphertext[:12],
		CryptographicParameters: &kmip.CryptographicParameters{
			CryptographicAlgorithm: kmip.CryptographicAlgorithmAES,
			BlockCipherMode:        kmip.BlockCipherModeGCM,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("kmip decrypt: %w", err)
	}
	return resp.Data, nil
}

func (m *Manager) ActiveKeyVersion(ctx context.Context) (uint32, error) {
	attrs, err := m.client.GetAttributes(ctx, m.wrapKeyID)
	if err != nil {
		return 0, fmt.Errorf("kmip get attributes: %w", err)
	}
	return uint32(attrs.CryptographicUsageMask), nil
}

func (m *Manager) HealthCheck(ctx context.Context) error {
	_, err := m.client.GetAttributes(ctx, m.wrapKeyID)
	if err != nil {
		return fmt.Errorf("kmip health check: %w", err)
	}
	return nil
}

func (m *Manager) Close(ctx context.Context) error {
	return m.client.Close()
}
