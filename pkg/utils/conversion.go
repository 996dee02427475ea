package utils

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Int16ToBytes converte um valor int16 para bytes (big-endian, formato S7)
func Int16ToBytes(val int16) []byte {
	bytes := make([]byte, 2)
	binary.BigEndian.PutUint16(bytes, uint16(val))
	return bytes
}

// BytesToInt16 converte bytes para int16
func BytesToInt16(bytes []byte) int16 {
	return int16(binary.BigEndian.Uint16(bytes))
}

// FormatFloat formata um float com precisão específica
func FormatFloat(value float64, precision int) string {
	format := "%." + strconv.Itoa(precision) + "f"
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf(format, value), "0"), ".")
}
