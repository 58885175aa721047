// Package packet implements the delimited text frame format shared with
// chart consumers. A frame is "!" + fields joined by ";" + "#". Field values
// are numeric or catalog codes, so the delimiter never needs escaping.
//
// Tick frame, 6 fields:
//
//	quoteCode;symbolCode;tickResolutionCode;price;quantity;timestampMillis
//
// Candle frame, 11 fields:
//
//	quoteCode;symbolCode;resolutionCode;start;end;open;close;high;low;volume;tickCount
package packet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ChartServer/internal/domain/models"
	"ChartServer/internal/market"
	"ChartServer/internal/resolution"
)

const (
	frameStart = "!"
	frameEnd   = "#"
	delimiter  = ";"

	tickFieldCount   = 6
	candleFieldCount = 11
)

// Typed decode failures. Decoding never returns a partial result.
var (
	ErrMalformedFrame    = errors.New("packet: missing frame markers")
	ErrFieldCount        = errors.New("packet: unexpected field count")
	ErrQuoteMismatch     = errors.New("packet: quote currency mismatch")
	ErrUnknownResolution = errors.New("packet: unknown resolution code")
	ErrUnknownSymbol     = errors.New("packet: unknown symbol code")
	ErrNumericField      = errors.New("packet: numeric field parse failed")
)

// EncodeTick renders a tick frame for the given symbol. An absent quantity
// encodes as 0.
func EncodeTick(symbol market.Symbol, tick models.Tick) string {
	var b strings.Builder
	b.WriteString(frameStart)
	b.WriteString(market.QuoteCode)
	b.WriteString(delimiter)
	b.WriteString(symbol.Code())
	b.WriteString(delimiter)
	b.WriteString(resolution.Tick.Code())
	b.WriteString(delimiter)
	b.WriteString(strconv.FormatInt(tick.Price, 10))
	b.WriteString(delimiter)
	b.WriteString(strconv.FormatInt(tick.Qty(), 10))
	b.WriteString(delimiter)
	b.WriteString(strconv.FormatInt(tick.Timestamp, 10))
	b.WriteString(frameEnd)
	return b.String()
}

// EncodeCandle renders a candle frame.
func EncodeCandle(c models.Candle) string {
	var b strings.Builder
	b.WriteString(frameStart)
	b.WriteString(market.QuoteCode)
	b.WriteString(delimiter)
	b.WriteString(c.Symbol.Code())
	b.WriteString(delimiter)
	b.WriteString(c.Resolution.Code())
	b.WriteString(delimiter)
	b.WriteString(strconv.FormatInt(c.StartTime, 10))
	b.WriteString(delimiter)
	b.WriteString(strconv.FormatInt(c.EndTime, 10))
	b.WriteString(delimiter)
	b.WriteString(strconv.FormatInt(c.Open, 10))
	b.WriteString(delimiter)
	b.WriteString(strconv.FormatInt(c.Close, 10))
	b.WriteString(delimiter)
	b.WriteString(strconv.FormatInt(c.High, 10))
	b.WriteString(delimiter)
	b.WriteString(strconv.FormatInt(c.Low, 10))
	b.WriteString(delimiter)
	b.WriteString(strconv.FormatInt(c.Volume, 10))
	b.WriteString(delimiter)
	b.WriteString(strconv.Itoa(c.TickCount))
	b.WriteString(frameEnd)
	return b.String()
}

// DecodeTick parses a tick frame back into its symbol and tick. The quote
// and resolution fields are positional padding on tick frames and are not
// validated; only the symbol matters to consumers.
func DecodeTick(frame string) (market.Symbol, models.Tick, error) {
	parts, err := split(frame)
	if err != nil {
		return "", models.Tick{}, err
	}
	if len(parts) != tickFieldCount {
		return "", models.Tick{}, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(parts), tickFieldCount)
	}

	symbol, err := market.FromCode(parts[1])
	if err != nil {
		return "", models.Tick{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, parts[1])
	}

	price, err := parseInt("price", parts[3])
	if err != nil {
		return "", models.Tick{}, err
	}
	quantity, err := parseInt("quantity", parts[4])
	if err != nil {
		return "", models.Tick{}, err
	}
	timestamp, err := parseInt("timestamp", parts[5])
	if err != nil {
		return "", models.Tick{}, err
	}

	return symbol, models.Tick{Price: price, Quantity: &quantity, Timestamp: timestamp}, nil
}

// DecodeCandle parses a candle frame. The quote field must carry the USDT
// code and the resolution code must exist in the catalog.
func DecodeCandle(frame string) (models.Candle, error) {
	parts, err := split(frame)
	if err != nil {
		return models.Candle{}, err
	}
	if len(parts) != candleFieldCount {
		return models.Candle{}, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(parts), candleFieldCount)
	}

	if !strings.EqualFold(parts[0], market.QuoteCode) {
		return models.Candle{}, fmt.Errorf("%w: %q", ErrQuoteMismatch, parts[0])
	}
	symbol, err := market.FromCode(parts[1])
	if err != nil {
		return models.Candle{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, parts[1])
	}
	res, err := resolution.FromCode(parts[2])
	if err != nil {
		return models.Candle{}, fmt.Errorf("%w: %q", ErrUnknownResolution, parts[2])
	}

	var c models.Candle
	c.Symbol = symbol
	c.Resolution = res
	if c.StartTime, err = parseInt("start", parts[3]); err != nil {
		return models.Candle{}, err
	}
	if c.EndTime, err = parseInt("end", parts[4]); err != nil {
		return models.Candle{}, err
	}
	if c.Open, err = parseInt("open", parts[5]); err != nil {
		return models.Candle{}, err
	}
	if c.Close, err = parseInt("close", parts[6]); err != nil {
		return models.Candle{}, err
	}
	if c.High, err = parseInt("high", parts[7]); err != nil {
		return models.Candle{}, err
	}
	if c.Low, err = parseInt("low", parts[8]); err != nil {
		return models.Candle{}, err
	}
	if c.Volume, err = parseInt("volume", parts[9]); err != nil {
		return models.Candle{}, err
	}
	ticks, err := parseInt("tickCount", parts[10])
	if err != nil {
		return models.Candle{}, err
	}
	c.TickCount = int(ticks)
	return c, nil
}

func split(frame string) ([]string, error) {
	if !strings.HasPrefix(frame, frameStart) || !strings.HasSuffix(frame, frameEnd) {
		return nil, ErrMalformedFrame
	}
	return strings.Split(frame[1:len(frame)-1], delimiter), nil
}

func parseInt(field, raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrNumericField, field, raw)
	}
	return v, nil
}
