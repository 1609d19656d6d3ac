// Package catalog загружает каталог соответствий шаблонов и артикулов.
//
// Каталог — это xlsx книга, которую ведут вручную вне бота: один лист на
// раздел (scope), колонки "ID", "Наименование" и по колонке на каждый
// ключ кабинета. Несколько артикулов в одной ячейке разделяются ";".
// Бот читает книгу заново при каждой операции — каталог для него read-only.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ilkoid/restock-bot/pkg/config"
)

// Source отдаёт свежие байты книги каталога.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// S3Source читает книгу каталога из бакета.
type S3Source struct {
	api       *minio.Client
	bucket    string
	objectKey string
}

// Проверка что источники реализуют Source
var (
	_ Source = (*S3Source)(nil)
	_ Source = (*FileSource)(nil)
)

// NewS3Source создает источник каталога поверх объектного хранилища.
func NewS3Source(cfg config.S3Config, objectKey string) (*S3Source, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &S3Source{
		api:       minioClient,
		bucket:    cfg.Bucket,
		objectKey: objectKey,
	}, nil
}

// Fetch скачивает книгу каталога целиком в память.
func (s *S3Source) Fetch(ctx context.Context) ([]byte, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, s.objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog object %s: %w", s.objectKey, err)
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, obj); err != nil {
		return nil, fmt.Errorf("failed to read catalog object %s: %w", s.objectKey, err)
	}

	return buf.Bytes(), nil
}

// FileSource читает книгу каталога с локального диска (fallback).
type FileSource struct {
	path string
}

// NewFileSource создает локальный источник каталога.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch читает файл каталога целиком.
func (s *FileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", s.path, err)
	}
	return data, nil
}

// NewSource выбирает источник каталога по конфигурации: S3 приоритетнее.
func NewSource(cfg config.CatalogConfig) (Source, error) {
	if cfg.S3.Enabled() {
		return NewS3Source(cfg.S3, cfg.ObjectKey)
	}
	if cfg.LocalPath != "" {
		return NewFileSource(cfg.LocalPath), nil
	}
	return nil, fmt.Errorf("no catalog source configured")
}
