// Package classify maps file extensions to a coarse category and a
// human-readable description. Classification is a pure lookup: it is total,
// deterministic and never inspects file content.
package classify

import (
	"strings"

	"github.com/you-humble/filedrive/internal/domain"
)

var categories = map[string]domain.FileCategory{
	"pdf": domain.CategoryDocument, "doc": domain.CategoryDocument,
	"docx": domain.CategoryDocument, "txt": domain.CategoryDocument,
	"rtf": domain.CategoryDocument, "odt": domain.CategoryDocument,
	"xls": domain.CategoryDocument, "xlsx": domain.CategoryDocument,
	"ppt": domain.CategoryDocument, "pptx": domain.CategoryDocument,
	"csv": domain.CategoryDocument,

	"jpg": domain.CategoryImage, "jpeg": domain.CategoryImage,
	"png": domain.CategoryImage, "gif": domain.CategoryImage,
	"svg": domain.CategoryImage, "bmp": domain.CategoryImage,
	"webp": domain.CategoryImage, "ico": domain.CategoryImage,
	"tiff": domain.CategoryImage, "tif": domain.CategoryImage,

	"mp4": domain.CategoryVideo, "avi": domain.CategoryVideo,
	"mov": domain.CategoryVideo, "mkv": domain.CategoryVideo,
	"wmv": domain.CategoryVideo, "flv": domain.CategoryVideo,
	"webm": domain.CategoryVideo, "mpeg": domain.CategoryVideo,
	"mpg": domain.CategoryVideo, "3gp": domain.CategoryVideo,

	"mp3": domain.CategoryAudio, "wav": domain.CategoryAudio,
	"flac": domain.CategoryAudio, "aac": domain.CategoryAudio,
	"ogg": domain.CategoryAudio, "m4a": domain.CategoryAudio,
	"wma": domain.CategoryAudio, "opus": domain.CategoryAudio,

	"zip": domain.CategoryArchive, "rar": domain.CategoryArchive,
	"7z": domain.CategoryArchive, "tar": domain.CategoryArchive,
	"gz": domain.CategoryArchive, "gzip": domain.CategoryArchive,
	"bz2": domain.CategoryArchive, "xz": domain.CategoryArchive,
}

var descriptions = map[string]string{
	"pdf":  "PDF Document",
	"doc":  "Word Document",
	"docx": "Word Document",
	"txt":  "Text Document",
	"rtf":  "Rich Text Document",
	"odt":  "OpenDocument Text",

	"jpg":  "JPEG Image",
	"jpeg": "JPEG Image",
	"png":  "PNG Image",
	"gif":  "GIF Image",
	"svg":  "SVG Vector Image",
	"bmp":  "Bitmap Image",
	"webp": "WebP Image",
	"ico":  "Icon Image",

	"mp4":  "MP4 Video",
	"avi":  "AVI Video",
	"mov":  "QuickTime Video",
	"mkv":  "Matroska Video",
	"wmv":  "Windows Media Video",
	"flv":  "Flash Video",
	"webm": "WebM Video",

	"mp3":  "MP3 Audio",
	"wav":  "WAV Audio",
	"flac": "FLAC Audio",
	"aac":  "AAC Audio",
	"ogg":  "Ogg Vorbis Audio",
	"m4a":  "M4A Audio",
	"wma":  "Windows Media Audio",

	"zip":  "ZIP Archive",
	"rar":  "RAR Archive",
	"7z":   "7-Zip Archive",
	"tar":  "TAR Archive",
	"gz":   "GZip Archive",
	"gzip": "GZip Archive",
	"bz2":  "BZip2 Archive",
}

var fallbacks = map[domain.FileCategory]string{
	domain.CategoryDocument: "Document File",
	domain.CategoryImage:    "Image File",
	domain.CategoryVideo:    "Video File",
	domain.CategoryAudio:    "Audio File",
	domain.CategoryArchive:  "Archive File",
}

// Classify returns the category and description for an extension. Unknown
// extensions are generic "<EXT> File"; an empty extension is "Unknown File".
func Classify(ext string) (domain.FileCategory, string) {
	ext = strings.ToLower(ext)
	if ext == "" {
		return domain.CategoryGeneric, "Unknown File"
	}

	cat, ok := categories[ext]
	if !ok {
		return domain.CategoryGeneric, strings.ToUpper(ext) + " File"
	}

	if desc, ok := descriptions[ext]; ok {
		return cat, desc
	}
	return cat, fallbacks[cat]
}

// ExtensionOf returns the lower-cased text after the last dot of filename,
// or "" when the filename has no dot.
func ExtensionOf(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}
