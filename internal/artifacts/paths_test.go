package artifacts

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestModelPath(t *testing.T) {
	itemID := uuid.MustParse("6f1c8d1e-9d1f-4a9a-9df1-0f6c1a2b3c4d")
	assert.Equal(t,
		fmt.Sprintf("items/%s/%s-1748779200000.glb", itemID, itemID),
		ModelPath(itemID, 1748779200000))
}

func TestImagePath(t *testing.T) {
	itemID := uuid.MustParse("6f1c8d1e-9d1f-4a9a-9df1-0f6c1a2b3c4d")
	assert.Equal(t,
		fmt.Sprintf("items/%s/images/processed-1748779200000-chair.png", itemID),
		ImagePath(itemID, 1748779200000, "chair.png"))
}

func TestImagePathSanitizesName(t *testing.T) {
	itemID := uuid.New()
	got := ImagePath(itemID, 1, "etc/pass wd?.png")
	assert.Equal(t, fmt.Sprintf("items/%s/images/processed-1-etc-pass-wd-.png", itemID), got)
}

func TestNameFromRef(t *testing.T) {
	cases := []struct {
		ref  string
		want string
	}{
		{"http://remote:5001/results/chair.png", "chair.png"},
		{"http://remote:5001/results/chair.png?token=abc", "chair.png"},
		{"http://remote:5001/", "result.png"},
		{"", "result.png"},
		{"plain-name.png", "plain-name.png"},
	}
	for _, tc := range cases {
		t.Run(tc.ref, func(t *testing.T) {
			assert.Equal(t, tc.want, NameFromRef(tc.ref))
		})
	}
}
