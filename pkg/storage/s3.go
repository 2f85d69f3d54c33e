// Package storage implements the path-keyed cloud drive over S3-compatible
// object storage. Objects live under {area}/{owner}/{path} inside a bucket;
// folders are implied by key prefixes, with an optional __dir__ marker object
// for empty ones. Move, copy and rename are server-side copy plus delete.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const (
	// DirMarker is the zero-byte object that keeps empty folders listable.
	DirMarker = "__dir__"

	// AreaStudent and AreaTeacher partition the cloud bucket by drive owner
	// kind; AreaHomework and AreaCourseware partition the public bucket by
	// upload kind.
	AreaStudent    = "student"
	AreaTeacher    = "teacher"
	AreaHomework   = "homework"
	AreaCourseware = "courseware"
)

var (
	// ErrObjectNotFound means neither a file nor a folder exists at the path.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectConflict means the destination path is already taken.
	ErrObjectConflict = errors.New("object already exists")
)

// Entry is one row of a directory listing. Folders sort before files.
type Entry struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	ModifiedTime int64  `json:"modified_time"`
	Src          string `json:"src"`
	Size         int64  `json:"size"`
}

// S3Config holds object storage client configuration. Endpoint is optional
// and switches the client to path-style addressing for MinIO-compatible
// deployments.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	CloudBucket     string
	PublicBucket    string
}

// S3 provides the drive operations over an S3-compatible store.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates the object storage client using credentials from config or
// the environment (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	} else if logger != nil {
		logger.Warn("object storage using default credential chain")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	if logger != nil {
		logger.Info("object storage client ready",
			zap.String("cloud_bucket", cfg.CloudBucket),
			zap.String("public_bucket", cfg.PublicBucket))
	}
	return &S3{client: client, uploader: uploader, cfg: cfg, logger: logger}, nil
}

// CloudBucket returns the per-user drive bucket name.
func (s *S3) CloudBucket() string { return s.cfg.CloudBucket }

// PublicBucket returns the bucket for homework and courseware uploads.
func (s *S3) PublicBucket() string { return s.cfg.PublicBucket }

// SplitPath splits a user-supplied path on slashes and backslashes, dropping
// empty segments. An empty result means the drive root.
func SplitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\' || r == '|'
	})
}

// ObjectKey builds the full key {area}/{owner}/{path segments...}.
func ObjectKey(area, owner string, segments ...string) string {
	parts := append([]string{area, owner}, segments...)
	return strings.Join(parts, "/")
}

func (s *S3) listPrefix(ctx context.Context, bucket, prefix string) ([]types.Object, error) {
	var objects []types.Object
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		objects = append(objects, page.Contents...)
	}
	return objects, nil
}

func keyExists(objects []types.Object, key string) bool {
	for _, o := range objects {
		if aws.ToString(o.Key) == key {
			return true
		}
	}
	return false
}

func underPrefix(objects []types.Object, prefix string) []types.Object {
	var out []types.Object
	for _, o := range objects {
		if strings.HasPrefix(aws.ToString(o.Key), prefix+"/") {
			out = append(out, o)
		}
	}
	return out
}

// ListDir lists a drive directory: immediate subfolders first, then files.
// Dir marker objects are hidden from the result.
func (s *S3) ListDir(ctx context.Context, bucket, area, owner, dir string) ([]Entry, error) {
	segments := SplitPath(dir)
	prefix := ObjectKey(area, owner, segments...) + "/"

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	entries := make([]Entry, 0, len(out.CommonPrefixes)+len(out.Contents))
	for _, cp := range out.CommonPrefixes {
		parts := strings.Split(strings.TrimSuffix(aws.ToString(cp.Prefix), "/"), "/")
		entries = append(entries, Entry{
			Name: parts[len(parts)-1],
			Type: "folder",
		})
	}
	rel := strings.Join(segments, "/")
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		name := key[strings.LastIndex(key, "/")+1:]
		if name == DirMarker || name == "" {
			continue
		}
		src := name
		if rel != "" {
			src = rel + "/" + name
		}
		var modified int64
		if obj.LastModified != nil {
			modified = obj.LastModified.Unix()
		}
		entries = append(entries, Entry{
			Name:         name,
			Type:         "file",
			ModifiedTime: modified,
			Src:          src,
			Size:         aws.ToInt64(obj.Size),
		})
	}
	return entries, nil
}

// Download returns the file name and a streaming body for the object at path.
// The caller must close the body.
func (s *S3) Download(ctx context.Context, bucket, area, owner, path string) (string, io.ReadCloser, error) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return "", nil, fmt.Errorf("%s: %w", path, ErrObjectNotFound)
	}
	key := ObjectKey(area, owner, segments...)

	objects, err := s.listPrefix(ctx, bucket, key)
	if err != nil {
		return "", nil, err
	}
	if !keyExists(objects, key) {
		return "", nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", nil, fmt.Errorf("get %s: %w", key, err)
	}
	return segments[len(segments)-1], out.Body, nil
}

// Put uploads one file into a drive directory. An existing file or folder at
// the destination is a conflict; the original is never overwritten.
func (s *S3) Put(ctx context.Context, bucket, area, owner, dstDir, filename string, body io.Reader) error {
	segments := append(SplitPath(dstDir), filename)
	key := ObjectKey(area, owner, segments...)

	objects, err := s.listPrefix(ctx, bucket, key)
	if err != nil {
		return err
	}
	if keyExists(objects, key) {
		return fmt.Errorf("%s: %w", key, ErrObjectConflict)
	}
	if len(underPrefix(objects, key)) != 0 {
		return fmt.Errorf("%s/: %w", key, ErrObjectConflict)
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// MakeDir creates an empty folder by writing its dir marker.
func (s *S3) MakeDir(ctx context.Context, bucket, area, owner, dir, name string) error {
	segments := append(SplitPath(dir), name, DirMarker)
	key := ObjectKey(area, owner, segments...)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", key, err)
	}
	return nil
}

// Delete removes the named files or folders (recursively) from a directory.
// A name matching neither a file nor a folder fails the whole call.
func (s *S3) Delete(ctx context.Context, bucket, area, owner, dir string, names []string) error {
	segments := SplitPath(dir)

	var doomed []types.ObjectIdentifier
	for _, name := range names {
		key := ObjectKey(area, owner, append(segments, name)...)
		objects, err := s.listPrefix(ctx, bucket, key)
		if err != nil {
			return err
		}
		if keyExists(objects, key) {
			doomed = append(doomed, types.ObjectIdentifier{Key: aws.String(key)})
			continue
		}
		children := underPrefix(objects, key)
		if len(children) == 0 {
			return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		for _, o := range children {
			doomed = append(doomed, types.ObjectIdentifier{Key: o.Key})
		}
	}

	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: doomed},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	return nil
}

// transfer copies srcKey (a file, or a folder prefix) to dstKey, deleting the
// source afterwards when move is set. The destination must be free.
func (s *S3) transfer(ctx context.Context, bucket, srcKey, dstKey string, move bool) error {
	srcObjects, err := s.listPrefix(ctx, bucket, srcKey)
	if err != nil {
		return err
	}
	dstObjects, err := s.listPrefix(ctx, bucket, dstKey)
	if err != nil {
		return err
	}

	if keyExists(dstObjects, dstKey) {
		return fmt.Errorf("%s: %w", dstKey, ErrObjectConflict)
	}
	if len(underPrefix(dstObjects, dstKey)) != 0 {
		return fmt.Errorf("%s/: %w", dstKey, ErrObjectConflict)
	}

	var sources []string
	var targets []string
	if keyExists(srcObjects, srcKey) {
		sources = []string{srcKey}
		targets = []string{dstKey}
	} else {
		children := underPrefix(srcObjects, srcKey)
		if len(children) == 0 {
			return fmt.Errorf("%s: %w", srcKey, ErrObjectNotFound)
		}
		for _, o := range children {
			key := aws.ToString(o.Key)
			sources = append(sources, key)
			targets = append(targets, dstKey+strings.TrimPrefix(key, srcKey))
		}
	}

	for i := range sources {
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(bucket),
			Key:        aws.String(targets[i]),
			CopySource: aws.String(bucket + "/" + sources[i]),
		})
		if err != nil {
			return fmt.Errorf("copy %s: %w", sources[i], err)
		}
		if move {
			_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(sources[i]),
			})
			if err != nil {
				return fmt.Errorf("delete %s: %w", sources[i], err)
			}
		}
	}
	return nil
}

// Move relocates the named objects from srcDir to dstDir within a drive.
func (s *S3) Move(ctx context.Context, bucket, area, owner, srcDir, dstDir string, names []string) error {
	return s.moveOrCopy(ctx, bucket, area, owner, srcDir, dstDir, names, true)
}

// Copy duplicates the named objects from srcDir to dstDir within a drive.
func (s *S3) Copy(ctx context.Context, bucket, area, owner, srcDir, dstDir string, names []string) error {
	return s.moveOrCopy(ctx, bucket, area, owner, srcDir, dstDir, names, false)
}

func (s *S3) moveOrCopy(ctx context.Context, bucket, area, owner, srcDir, dstDir string, names []string, move bool) error {
	srcSegments := SplitPath(srcDir)
	dstSegments := SplitPath(dstDir)
	for _, name := range names {
		srcKey := ObjectKey(area, owner, append(srcSegments, name)...)
		dstKey := ObjectKey(area, owner, append(dstSegments, name)...)
		if err := s.transfer(ctx, bucket, srcKey, dstKey, move); err != nil {
			return err
		}
	}
	return nil
}

// Rename moves one object to a new name within the same directory.
func (s *S3) Rename(ctx context.Context, bucket, area, owner, dir, oldName, newName string) error {
	segments := SplitPath(dir)
	srcKey := ObjectKey(area, owner, append(segments, oldName)...)
	dstKey := ObjectKey(area, owner, append(segments, newName)...)
	return s.transfer(ctx, bucket, srcKey, dstKey, true)
}

// Stat resolves a drive path to its full object key and kind (file or
// folder), for building share links.
func (s *S3) Stat(ctx context.Context, bucket, area, owner, path string) (key, kind string, err error) {
	segments := SplitPath(path)
	key = ObjectKey(area, owner, segments...)

	objects, err := s.listPrefix(ctx, bucket, key)
	if err != nil {
		return "", "", err
	}
	if keyExists(objects, key) {
		return key, "file", nil
	}
	if len(underPrefix(objects, key)) != 0 {
		return key, "folder", nil
	}
	return "", "", fmt.Errorf("%s: %w", key, ErrObjectNotFound)
}

// CopyIn copies a shared object (by its full source key) into the receiving
// user's drive under dstDir/name. Used when accepting a share link.
func (s *S3) CopyIn(ctx context.Context, bucket, srcKey, name, area, owner, dstDir string) error {
	dstKey := ObjectKey(area, owner, append(SplitPath(dstDir), name)...)
	return s.transfer(ctx, bucket, srcKey, dstKey, false)
}

// PresignDownload returns a time-limited GET URL for a public object.
func (s *S3) PresignDownload(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	presign := s3.NewPresignClient(s.client)
	req, err := presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
