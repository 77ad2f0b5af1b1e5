// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package media

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Matrix message types for attachments.
const (
	MsgTypeImage = "m.image"
	MsgTypeFile  = "m.file"
)

// imageTypes are the formats sent as m.image. Anything else, including
// other image formats, is sent as m.file.
var imageTypes = []string{"image/gif", "image/png", "image/jpeg"}

// Classification is the result of sniffing an attachment.
type Classification struct {
	// ContentType is the detected MIME type, without parameters.
	ContentType string
	// MsgType is MsgTypeImage or MsgTypeFile.
	MsgType string
}

// Classify sniffs data's MIME type from its content. The file name is
// never consulted: a PNG named notes.txt is still an image.
func Classify(data []byte) Classification {
	detected := mimetype.Detect(data)
	classification := Classification{
		ContentType: detected.String(),
		MsgType:     MsgTypeFile,
	}
	for _, imageType := range imageTypes {
		if detected.Is(imageType) {
			classification.ContentType = imageType
			classification.MsgType = MsgTypeImage
			break
		}
	}
	// Text types carry "; charset=utf-8".
	if base, _, found := strings.Cut(classification.ContentType, ";"); found {
		classification.ContentType = strings.TrimSpace(base)
	}
	return classification
}
