package config

import "testing"

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORAGE_TYPE", "")
	t.Setenv("AWS_S3_BUCKET", "")
	t.Setenv("SMTP_FROM", "")
	t.Setenv("SMTP_USER", "")
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	setBase(t)
	t.Setenv("SESSION_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when SESSION_SECRET is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.StorageType != StorageLocal {
		t.Errorf("StorageType = %q, want local", cfg.StorageType)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.SMTPPort)
	}
	if cfg.TranscriptsBasePath != "audio/transcripts" {
		t.Errorf("TranscriptsBasePath = %q", cfg.TranscriptsBasePath)
	}
	if cfg.Production {
		t.Error("Production should default to false")
	}
}

func TestLoadRejectsUnknownStorageType(t *testing.T) {
	setBase(t)
	t.Setenv("STORAGE_TYPE", "gluster")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown STORAGE_TYPE")
	}
}

func TestLoadRequiresBucketForS3(t *testing.T) {
	setBase(t)
	t.Setenv("STORAGE_TYPE", "s3")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when AWS_S3_BUCKET is missing in s3 mode")
	}

	t.Setenv("AWS_S3_BUCKET", "transcripts")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.S3Bucket != "transcripts" {
		t.Errorf("S3Bucket = %q", cfg.S3Bucket)
	}
}

func TestSMTPFromFallsBackToUser(t *testing.T) {
	setBase(t)
	t.Setenv("SMTP_USER", "mailer@example.com")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SMTPFrom != "mailer@example.com" {
		t.Errorf("SMTPFrom = %q, want fallback to SMTP_USER", cfg.SMTPFrom)
	}
}
