/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cooldown

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/awslabs/operatorpkg/serrors"
	"github.com/go-logr/logr"

	sdk "github.com/ecsautoscaler/ecs-autoscaler/pkg/aws"
	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	autoscalingerrors "github.com/ecsautoscaler/ecs-autoscaler/pkg/errors"
)

// S3Store keeps one object per service. The body is the unix time of the last scale-down as decimal text,
// fractional seconds allowed.
type S3Store struct {
	s3api          sdk.S3API
	bucket         string
	scopeByCluster bool
}

func NewS3Store(s3api sdk.S3API, bucket string, scopeByCluster bool) *S3Store {
	return &S3Store{
		s3api:          s3api,
		bucket:         bucket,
		scopeByCluster: scopeByCluster,
	}
}

func (s *S3Store) Get(ctx context.Context, key v1.ServiceKey) (Lookup, error) {
	out, err := s.s3api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if autoscalingerrors.IsNotFound(err) {
			return NotFound(), nil
		}
		return Lookup{}, fmt.Errorf("getting cooldown record, %w", err)
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return Lookup{}, fmt.Errorf("reading cooldown record, %w", err)
	}
	t, err := ParseTimestamp(string(body))
	if err != nil {
		return Lookup{}, serrors.Wrap(fmt.Errorf("parsing cooldown record, %w", err), "bucket", s.bucket, "key", s.objectKey(key))
	}
	return Found(t), nil
}

func (s *S3Store) Put(ctx context.Context, key v1.ServiceKey, t time.Time) error {
	if _, err := s.s3api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        strings.NewReader(FormatTimestamp(t)),
		ContentType: aws.String("text/plain"),
	}); err != nil {
		return fmt.Errorf("putting cooldown record, %w", err)
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("wrote cooldown record", "bucket", s.bucket, "key", s.objectKey(key))
	return nil
}

func (s *S3Store) objectKey(key v1.ServiceKey) string {
	return key.CooldownObjectKey(s.scopeByCluster)
}

// FormatTimestamp renders t as unix seconds with microsecond precision
func FormatTimestamp(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}

// ParseTimestamp reads unix seconds, integral or fractional
func ParseTimestamp(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return time.Time{}, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*int64(time.Microsecond)), nil
}
