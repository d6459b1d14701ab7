package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestUserPrefix(t *testing.T) {
	if got := UserPrefix("u1"); got != "users/u1/" {
		t.Fatalf("unexpected prefix %q", got)
	}
}

func TestDeletePrefix_EmptyListingIsNoop(t *testing.T) {
	origList, origDelete := listObjectsV2, deleteObjects
	defer func() { listObjectsV2 = origList; deleteObjects = origDelete }()

	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
	}
	deleted := false
	deleteObjects = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		deleted = true
		return &s3.DeleteObjectsOutput{}, nil
	}

	store := &S3Store{cfg: S3Config{Bucket: "uploads"}}
	if err := store.DeletePrefix(context.Background(), "users/gone/"); err != nil {
		t.Fatalf("DeletePrefix error: %v", err)
	}
	if deleted {
		t.Fatal("DeleteObjects must not be called for an empty listing")
	}
}

func TestDeletePrefix_PaginatesAndDeletes(t *testing.T) {
	origList, origDelete := listObjectsV2, deleteObjects
	defer func() { listObjectsV2 = origList; deleteObjects = origDelete }()

	pages := []*s3.ListObjectsV2Output{
		{
			Contents:              objectList("users/u1/a.jpg", "users/u1/b.jpg"),
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("next"),
		},
		{
			Contents:    objectList("users/u1/c.jpg"),
			IsTruncated: aws.Bool(false),
		},
	}
	calls := 0
	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		if *in.Prefix != "users/u1/" {
			t.Errorf("unexpected prefix %q", *in.Prefix)
		}
		if calls == 1 && (in.ContinuationToken == nil || *in.ContinuationToken != "next") {
			t.Error("continuation token not forwarded")
		}
		out := pages[calls]
		calls++
		return out, nil
	}

	var deletedKeys []string
	deleteObjects = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		for _, obj := range in.Delete.Objects {
			deletedKeys = append(deletedKeys, *obj.Key)
		}
		return &s3.DeleteObjectsOutput{}, nil
	}

	store := &S3Store{cfg: S3Config{Bucket: "uploads"}}
	if err := store.DeletePrefix(context.Background(), "users/u1/"); err != nil {
		t.Fatalf("DeletePrefix error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 list pages, got %d", calls)
	}
	if len(deletedKeys) != 3 {
		t.Fatalf("expected 3 deleted objects, got %v", deletedKeys)
	}
}

func TestDeletePrefix_ListError(t *testing.T) {
	origList := listObjectsV2
	defer func() { listObjectsV2 = origList }()

	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return nil, errors.New("access denied")
	}

	store := &S3Store{cfg: S3Config{Bucket: "uploads"}}
	if err := store.DeletePrefix(context.Background(), "users/u1/"); err == nil {
		t.Fatal("expected error when listing fails")
	}
}

func objectList(keys ...string) []types.Object {
	out := make([]types.Object, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Object{Key: aws.String(k)})
	}
	return out
}
