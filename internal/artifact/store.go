package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Fetcher 是 IDL 工件存储的抽象：按内容 ID（或路径）取回原始 IDL 字节。
// 引擎不关心底层实现，上传与内容寻址的生成属于外部协作方。
type Fetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// DirStore 从本地目录读取 IDL（注册表 checkout 场景）。
type DirStore struct {
	root string
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) Fetch(_ context.Context, id string) ([]byte, error) {
	// 拒绝越出根目录的相对路径
	clean := filepath.Clean(id)
	if strings.Contains(clean, "..") {
		return nil, fmt.Errorf("invalid idl path: %s", id)
	}
	raw, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		return nil, fmt.Errorf("read idl %s: %w", id, err)
	}
	return raw, nil
}

// ObjectStoreConfig 是对象存储（内容寻址工件库）的接入配置。
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// ObjectStore 从 S3 兼容对象存储按内容 ID 取回 IDL。
type ObjectStore struct {
	client *minio.Client
	bucket string
}

func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init: %w", err)
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *ObjectStore) Fetch(ctx context.Context, id string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get idl object %s: %w", id, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read idl object %s: %w", id, err)
	}
	return raw, nil
}
