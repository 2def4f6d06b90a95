package listener

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"

	"gcd-backend/parser"
	"gcd-backend/usecase"
)

var (
	wordDecoder = &mime.WordDecoder{}
	htmlTagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
)

func decodeHeaderWord(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// ParseMessage turns a raw RFC822 message into the pipeline's inbound
// shape: decoded headers, a plain-text body, and decoded attachments.
func ParseMessage(r io.Reader) (usecase.InboundEmail, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return usecase.InboundEmail{}, fmt.Errorf("read message: %w", err)
	}

	headers := parser.Headers{}
	for name, values := range msg.Header {
		decoded := make([]string, 0, len(values))
		for _, v := range values {
			decoded = append(decoded, decodeHeaderWord(v))
		}
		headers[name] = decoded
	}

	in := usecase.InboundEmail{
		From:    decodeHeaderWord(msg.Header.Get("From")),
		Subject: decodeHeaderWord(msg.Header.Get("Subject")),
		Headers: headers,
	}

	plain, html, atts, err := walkPart(msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return usecase.InboundEmail{}, err
	}
	in.Attachments = atts
	in.Body = strings.TrimSpace(plain)
	if in.Body == "" && html != "" {
		in.Body = strings.TrimSpace(htmlTagRe.ReplaceAllString(html, " "))
	}
	return in, nil
}

// walkPart recurses through a MIME tree collecting the first usable
// text/plain body, a text/html fallback, and any attachments.
func walkPart(contentType, transferEncoding string, body io.Reader) (plain, html string, atts []usecase.Attachment, err error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Untyped messages are treated as plain text.
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return "", "", nil, fmt.Errorf("multipart without boundary")
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return plain, html, atts, nil
			}
			subPlain, subHTML, subAtts, err := walkSubpart(part)
			if err != nil {
				continue
			}
			if plain == "" {
				plain = subPlain
			}
			if html == "" {
				html = subHTML
			}
			atts = append(atts, subAtts...)
		}
		return plain, html, atts, nil
	}

	data, err := decodeBody(body, transferEncoding)
	if err != nil {
		return "", "", nil, err
	}
	switch {
	case strings.HasPrefix(mediaType, "text/plain"):
		return string(data), "", nil, nil
	case strings.HasPrefix(mediaType, "text/html"):
		return "", string(data), nil, nil
	default:
		return "", "", nil, nil
	}
}

func walkSubpart(part *multipart.Part) (plain, html string, atts []usecase.Attachment, err error) {
	defer part.Close()

	disposition, dispParams, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	filename := dispParams["filename"]
	if filename == "" {
		filename = part.FileName()
	}
	if disposition == "attachment" || filename != "" {
		data, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			return "", "", nil, err
		}
		mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		return "", "", []usecase.Attachment{{
			Filename:    decodeHeaderWord(filename),
			ContentType: mediaType,
			Data:        data,
		}}, nil
	}

	return walkPart(part.Header.Get("Content-Type"),
		part.Header.Get("Content-Transfer-Encoding"), part)
}

func decodeBody(r io.Reader, transferEncoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		// The base64 decoder skips the CRLFs of 76-column wrapping.
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	return io.ReadAll(r)
}
