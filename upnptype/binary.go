package upnptype

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

func decodeBinary(t Type, val string) ([]byte, error) {
	switch t {
	case BinBase64:
		data, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			return nil, errors.New("invalid base64: " + err.Error())
		}
		return data, nil
	case BinHex:
		val = strings.TrimSpace(val)
		if len(val)%2 != 0 {
			return nil, errors.New("invalid hex: odd-length string")
		}
		data := make([]byte, len(val)/2)
		if _, err := hex.Decode(data, []byte(val)); err != nil {
			return nil, errors.New("invalid hex: " + err.Error())
		}
		return data, nil
	default:
		return nil, errors.New("decodeBinary: unsupported binary type")
	}
}

func encodeBinary(t Type, data []byte) string {
	switch t {
	case BinBase64:
		return base64.StdEncoding.EncodeToString(data)
	case BinHex:
		return hex.EncodeToString(data)
	default:
		return ""
	}
}
