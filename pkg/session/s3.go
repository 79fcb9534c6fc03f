// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register("s3", func(ctx context.Context, creds *Credentials) (Session, error) {
		return NewS3(creds)
	})
}

var _ Session = (*S3)(nil)

// ☁️ S3 delivers into a bucket watched by a guard. The bucket has no real
// directories: the current directory is a key prefix.
type S3 struct {
	creds    *Credentials
	client   *s3.Client
	uploader *manager.Uploader
	cwd      string
}

// NewS3 builds an unopened S3 session from credentials
func NewS3(creds *Credentials) (*S3, error) {
	if creds.Bucket == "" {
		return nil, errors.New("s3 session requires bucket")
	}
	return &S3{creds: creds}, nil
}

// Open loads the AWS config and checks the bucket is reachable
func (p *S3) Open(ctx context.Context) error {
	opts := []func(*awsconfig.LoadOptions) error{}
	if p.creds.Region != "" {
		opts = append(opts, awsconfig.WithRegion(p.creds.Region))
	}
	if p.creds.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.creds.AccessKey, p.creds.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return errors.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if p.creds.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.creds.Endpoint)
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.creds.Bucket)}); err != nil {
		return errors.Errorf("checking bucket %s: %w", p.creds.Bucket, err)
	}

	p.client = client
	p.uploader = manager.NewUploader(client)
	p.cwd = path.Clean("/" + p.creds.Prefix)
	zerolog.Ctx(ctx).Debug().Str("bucket", p.creds.Bucket).Str("cwd", p.cwd).Msg("s3 session open")
	return nil
}

func (p *S3) IsConnected() bool { return p.client != nil }

func (p *S3) CurrentDir() string { return p.cwd }

// ChangeDir always succeeds once connected; prefixes need no creation
func (p *S3) ChangeDir(ctx context.Context, dir string) error {
	if p.client == nil {
		return ErrNotConnected
	}
	p.cwd = resolve(p.cwd, dir)
	return nil
}

// PutFile uploads local to the key named by remote
func (p *S3) PutFile(ctx context.Context, local, remote string) error {
	if p.client == nil {
		return ErrNotConnected
	}

	f, err := os.Open(local)
	if err != nil {
		return errors.Errorf("opening %s: %w", local, err)
	}
	defer f.Close()

	key := objectKey(p.cwd, remote)
	if _, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.creds.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return errors.Errorf("uploading s3://%s/%s: %w", p.creds.Bucket, key, err)
	}
	return nil
}

func (p *S3) Close() error {
	p.client = nil
	p.uploader = nil
	return nil
}

// objectKey turns a remote path into a bucket key
func objectKey(cwd, remote string) string {
	return strings.TrimPrefix(resolve(cwd, remote), "/")
}
