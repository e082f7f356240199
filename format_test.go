package mtpview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFromFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		exp  ObjectFormat
	}{
		{"song.mp3", FormatMP3},
		{"SONG.MP3", FormatMP3},
		{"notes.txt", FormatText},
		{"/home/user/photo.jpeg", FormatEXIFJPEG},
		{`C:\pics\photo.JPG`, FormatEXIFJPEG},
		{"clip.mp4", FormatMP4Container},
		{"archive.tar.flac", FormatFLAC},
		{"README", FormatUndefined},
		{"strange.xyz", FormatUndefined},
		{".hidden", FormatUndefined},
		{"dir.d/file", FormatUndefined},
		{"", FormatUndefined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.exp, FormatFromFilename(tt.name))
		})
	}
}

func TestObjectFormat_IsContainer(t *testing.T) {
	t.Parallel()

	assert.True(t, FormatAssociation.IsContainer())
	assert.True(t, FormatAbstractAudioAlbum.IsContainer())
	assert.False(t, FormatUndefined.IsContainer())
	assert.False(t, FormatMP3.IsContainer())
	assert.False(t, FormatM3UPlaylist.IsContainer())
}

func TestObjectInfo_IsContainer(t *testing.T) {
	t.Parallel()

	var nilInfo *ObjectInfo
	assert.False(t, nilInfo.IsContainer(), "nil info is never a container")
	assert.True(t, (&ObjectInfo{ObjectFormat: FormatAssociation}).IsContainer())
	assert.False(t, (&ObjectInfo{ObjectFormat: FormatText}).IsContainer())
}

func TestObjectFormat_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Association", FormatAssociation.String())
	assert.Equal(t, "MP3", FormatMP3.String())
	assert.Equal(t, "0x1234", ObjectFormat(0x1234).String())
}
