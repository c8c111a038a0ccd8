package converter

import "testing"

func TestIsEligible(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.heic", true},
		{"photo.heif", true},
		{"Photo.HEIC", true}, // case insensitive
		{"photo.HeIf", true},
		{"photo.heics", false}, // extension-exact
		{"photo.jpg", false},
		{"photo.txt", false},
		{"heic", false}, // без расширения
		{"archive.heic.zip", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEligible(tt.name); got != tt.want {
				t.Errorf("IsEligible(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"foo.heic", "foo.jpg"},
		{"foo.HEIF", "foo.jpg"},
		{"IMG_0042.HeIc", "IMG_0042.jpg"},
		{"my photo (1).heif", "my photo (1).jpg"},
		// Неподходящие имена не меняются
		{"foo.jpg", "foo.jpg"},
		{"foo.heics", "foo.heics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputName(tt.name); got != tt.want {
				t.Errorf("OutputName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
