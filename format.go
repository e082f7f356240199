package mtpview

import (
	"fmt"
	"path"
	"strings"
)

// ObjectFormat is a PTP/MTP object format code
type ObjectFormat uint16

// AllFormats disables format filtering when enumerating
const AllFormats ObjectFormat = 0

const (
	FormatUndefined   ObjectFormat = 0x3000
	FormatAssociation ObjectFormat = 0x3001
	FormatScript      ObjectFormat = 0x3002
	FormatExecutable  ObjectFormat = 0x3003
	FormatText        ObjectFormat = 0x3004
	FormatHTML        ObjectFormat = 0x3005
	FormatDPOF        ObjectFormat = 0x3006
	FormatAIFF        ObjectFormat = 0x3007
	FormatWAV         ObjectFormat = 0x3008
	FormatMP3         ObjectFormat = 0x3009
	FormatAVI         ObjectFormat = 0x300a
	FormatMPEG        ObjectFormat = 0x300b
	FormatASF         ObjectFormat = 0x300c

	FormatEXIFJPEG ObjectFormat = 0x3801
	FormatBMP      ObjectFormat = 0x3804
	FormatGIF      ObjectFormat = 0x3807
	FormatJFIF     ObjectFormat = 0x3808
	FormatPNG      ObjectFormat = 0x380b
	FormatTIFF     ObjectFormat = 0x380d

	FormatUndefinedFirmware ObjectFormat = 0xb802
	FormatWMA               ObjectFormat = 0xb901
	FormatOGG               ObjectFormat = 0xb902
	FormatAAC               ObjectFormat = 0xb903
	FormatFLAC              ObjectFormat = 0xb906
	FormatWMV               ObjectFormat = 0xb981
	FormatMP4Container      ObjectFormat = 0xb982
	Format3GPContainer      ObjectFormat = 0xb984

	FormatAbstractAudioAlbum ObjectFormat = 0xba03
	FormatM3UPlaylist        ObjectFormat = 0xba11
	FormatXMLDocument        ObjectFormat = 0xba82
	FormatMSWordDocument     ObjectFormat = 0xba83
	FormatMSExcelSpreadsheet ObjectFormat = 0xba85
	FormatMSPowerpoint       ObjectFormat = 0xba86
)

var formatNames = map[ObjectFormat]string{
	FormatUndefined:          "Undefined",
	FormatAssociation:        "Association",
	FormatScript:             "Script",
	FormatExecutable:         "Executable",
	FormatText:               "Text",
	FormatHTML:               "HTML",
	FormatDPOF:               "DPOF",
	FormatAIFF:               "AIFF",
	FormatWAV:                "WAV",
	FormatMP3:                "MP3",
	FormatAVI:                "AVI",
	FormatMPEG:               "MPEG",
	FormatASF:                "ASF",
	FormatEXIFJPEG:           "EXIF/JPEG",
	FormatBMP:                "BMP",
	FormatGIF:                "GIF",
	FormatJFIF:               "JFIF",
	FormatPNG:                "PNG",
	FormatTIFF:               "TIFF",
	FormatUndefinedFirmware:  "Firmware",
	FormatWMA:                "WMA",
	FormatOGG:                "OGG",
	FormatAAC:                "AAC",
	FormatFLAC:               "FLAC",
	FormatWMV:                "WMV",
	FormatMP4Container:       "MP4",
	Format3GPContainer:       "3GP",
	FormatAbstractAudioAlbum: "AudioAlbum",
	FormatM3UPlaylist:        "M3U",
	FormatXMLDocument:        "XML",
	FormatMSWordDocument:     "Word",
	FormatMSExcelSpreadsheet: "Excel",
	FormatMSPowerpoint:       "Powerpoint",
}

// extension (lower case, no dot) -> format
var extFormats = map[string]ObjectFormat{
	"txt":  FormatText,
	"htm":  FormatHTML,
	"html": FormatHTML,
	"sh":   FormatScript,
	"exe":  FormatExecutable,
	"aif":  FormatAIFF,
	"aiff": FormatAIFF,
	"wav":  FormatWAV,
	"mp3":  FormatMP3,
	"avi":  FormatAVI,
	"mpg":  FormatMPEG,
	"mpeg": FormatMPEG,
	"asf":  FormatASF,
	"jpg":  FormatEXIFJPEG,
	"jpeg": FormatEXIFJPEG,
	"bmp":  FormatBMP,
	"gif":  FormatGIF,
	"png":  FormatPNG,
	"tif":  FormatTIFF,
	"tiff": FormatTIFF,
	"bin":  FormatUndefinedFirmware,
	"wma":  FormatWMA,
	"ogg":  FormatOGG,
	"aac":  FormatAAC,
	"flac": FormatFLAC,
	"wmv":  FormatWMV,
	"mp4":  FormatMP4Container,
	"m4a":  FormatMP4Container,
	"3gp":  Format3GPContainer,
	"m3u":  FormatM3UPlaylist,
	"xml":  FormatXMLDocument,
	"doc":  FormatMSWordDocument,
	"docx": FormatMSWordDocument,
	"xls":  FormatMSExcelSpreadsheet,
	"xlsx": FormatMSExcelSpreadsheet,
	"ppt":  FormatMSPowerpoint,
	"pptx": FormatMSPowerpoint,
}

// FormatFromFilename resolves the object format from the file name extension.
// Returns FormatUndefined when the extension is missing or not recognized
func FormatFromFilename(name string) ObjectFormat {
	// accept host paths with either separator
	name = name[strings.LastIndexAny(name, `/\`)+1:]
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if f, ok := extFormats[ext]; ok {
		return f
	}
	return FormatUndefined
}

// IsContainer reports whether objects of this format can be entered.
// Both plain associations (folders) and audio albums qualify
func (f ObjectFormat) IsContainer() bool {
	return f == FormatAssociation || f == FormatAbstractAudioAlbum
}

func (f ObjectFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", uint16(f))
}
