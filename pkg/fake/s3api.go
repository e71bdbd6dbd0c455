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

package fake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	sdk "github.com/ecsautoscaler/ecs-autoscaler/pkg/aws"
)

// S3API is an in-memory object store. Object bodies are streams, so unlike the other fakes it doesn't record
// inputs through MockedFunction; it keeps call counters and injectable errors instead.
type S3API struct {
	sdk.S3API

	GetObjectError AtomicError
	PutObjectError AtomicError

	mu      sync.RWMutex
	objects map[string][]byte

	getCalls atomic.Int32
	putCalls atomic.Int32
}

func NewS3API() *S3API {
	return &S3API{objects: map[string][]byte{}}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (s *S3API) Reset() {
	s.GetObjectError.Reset()
	s.PutObjectError.Reset()
	s.getCalls.Store(0)
	s.putCalls.Store(0)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = map[string][]byte{}
}

// SetObject seeds an object without counting as a PutObject call
func (s *S3API) SetObject(bucket, key string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectID(bucket, key)] = bytes.Clone(body)
}

// Object returns the stored body of an object and whether it exists
func (s *S3API) Object(bucket, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.objects[objectID(bucket, key)]
	return bytes.Clone(body), ok
}

func (s *S3API) GetObjectCalls() int {
	return int(s.getCalls.Load())
}

func (s *S3API) PutObjectCalls() int {
	return int(s.putCalls.Load())
}

func (s *S3API) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	s.getCalls.Add(1)
	if err := s.GetObjectError.Get(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.objects[objectID(aws.ToString(input.Bucket), aws.ToString(input.Key))]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(bytes.Clone(body))),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func (s *S3API) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.putCalls.Add(1)
	if err := s.PutObjectError.Get(); err != nil {
		return nil, err
	}
	var body []byte
	if input.Body != nil {
		b, err := io.ReadAll(input.Body)
		if err != nil {
			return nil, fmt.Errorf("reading body, %w", err)
		}
		body = b
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectID(aws.ToString(input.Bucket), aws.ToString(input.Key))] = body
	return &s3.PutObjectOutput{}, nil
}

func objectID(bucket, key string) string {
	return bucket + "/" + key
}
