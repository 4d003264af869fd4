package rangedb

import (
	"fmt"
	"math"
)

// payloadCodec is the per-dataset part of the record stream format.
// One range-table engine, four codecs.
//
// Codecs may carry delta state between records of one skip-index
// block; reset is called at every block boundary so blocks decode
// independently of each other.
type payloadCodec interface {
	encode(enc *Encoder, pool *StringPool, payload Payload) error
	decode(dec *Decoder, pool []string) (Payload, error)
	reset()
}

// maxPayloadString is the largest string a pool entry can hold, fixed
// by the uint16 length prefix of the pool format.
const maxPayloadString = 0xFFFF

// internString is the only way payload strings enter the pool. It
// fails fast on values the length prefix cannot represent instead of
// letting the encoder clamp them.
func internString(pool *StringPool, s string) (uint64, error) {
	if len(s) > maxPayloadString {
		return 0, fmt.Errorf("payload string of %d bytes exceeds the %d byte pool entry limit",
			len(s), maxPayloadString)
	}

	return pool.Intern(s), nil
}

func newPayloadCodec(dataset Dataset) (payloadCodec, error) {
	switch dataset {
	case DatasetGeo:
		return &geoCodec{}, nil
	case DatasetASN:
		return &asnCodec{}, nil
	case DatasetISP:
		return &ispCodec{}, nil
	case DatasetProxy:
		return &proxyCodec{}, nil
	}

	return nil, fmt.Errorf("unknown dataset %d", uint8(dataset))
}

// geoCodec stores coordinates as raw float64 bits. They are not
// monotonic, so delta coding buys nothing, and rounding them to fixed
// precision is a lossy shortcut this format does not take.
type geoCodec struct{}

func (c *geoCodec) encode(enc *Encoder, _ *StringPool, payload Payload) error {
	geo, ok := payload.(GeoPayload)
	if !ok {
		return fmt.Errorf("expected geo payload, got %s", payload.Dataset())
	}

	enc.WriteU64(math.Float64bits(geo.Latitude))
	enc.WriteU64(math.Float64bits(geo.Longitude))

	return nil
}

func (c *geoCodec) decode(dec *Decoder, _ []string) (Payload, error) {
	payload := GeoPayload{
		Latitude:  math.Float64frombits(dec.ReadU64()),
		Longitude: math.Float64frombits(dec.ReadU64()),
	}

	if dec.Failed() {
		return nil, ErrTruncated
	}

	return payload, nil
}

func (c *geoCodec) reset() {}

// asnCodec delta-codes the three pool indexes: consecutive ranges of
// the same origin reuse the same strings, so deltas are mostly zero.
type asnCodec struct {
	prevCIDR int64
	prevASN  int64
	prevName int64
}

func (c *asnCodec) encode(enc *Encoder, pool *StringPool, payload Payload) error {
	asn, ok := payload.(ASNPayload)
	if !ok {
		return fmt.Errorf("expected asn payload, got %s", payload.Dataset())
	}

	cidrIdx, err := internString(pool, asn.CIDR)
	if err != nil {
		return err
	}

	asnIdx, err := internString(pool, asn.ASN)
	if err != nil {
		return err
	}

	nameIdx, err := internString(pool, asn.ASName)
	if err != nil {
		return err
	}

	enc.WriteVarint(int64(cidrIdx) - c.prevCIDR)
	enc.WriteVarint(int64(asnIdx) - c.prevASN)
	enc.WriteVarint(int64(nameIdx) - c.prevName)

	c.prevCIDR, c.prevASN, c.prevName = int64(cidrIdx), int64(asnIdx), int64(nameIdx)

	return nil
}

func (c *asnCodec) decode(dec *Decoder, pool []string) (Payload, error) {
	c.prevCIDR += dec.ReadVarint()
	c.prevASN += dec.ReadVarint()
	c.prevName += dec.ReadVarint()

	if dec.Failed() {
		return nil, ErrTruncated
	}

	cidr, err := poolString(pool, c.prevCIDR)
	if err != nil {
		return nil, err
	}

	asn, err := poolString(pool, c.prevASN)
	if err != nil {
		return nil, err
	}

	name, err := poolString(pool, c.prevName)
	if err != nil {
		return nil, err
	}

	return ASNPayload{CIDR: cidr, ASN: asn, ASName: name}, nil
}

func (c *asnCodec) reset() {
	c.prevCIDR, c.prevASN, c.prevName = 0, 0, 0
}

type ispCodec struct{}

func (c *ispCodec) encode(enc *Encoder, pool *StringPool, payload Payload) error {
	isp, ok := payload.(ISPPayload)
	if !ok {
		return fmt.Errorf("expected isp payload, got %s", payload.Dataset())
	}

	ispIdx, err := internString(pool, isp.ISP)
	if err != nil {
		return err
	}

	domainIdx, err := internString(pool, isp.Domain)
	if err != nil {
		return err
	}

	providerIdx, err := internString(pool, isp.Provider)
	if err != nil {
		return err
	}

	enc.WriteUvarint(ispIdx)
	enc.WriteUvarint(domainIdx)
	enc.WriteUvarint(providerIdx)

	return nil
}

func (c *ispCodec) decode(dec *Decoder, pool []string) (Payload, error) {
	ispIdx := dec.ReadUvarint()
	domainIdx := dec.ReadUvarint()
	providerIdx := dec.ReadUvarint()

	if dec.Failed() {
		return nil, ErrTruncated
	}

	isp, err := poolString(pool, int64(ispIdx))
	if err != nil {
		return nil, err
	}

	domain, err := poolString(pool, int64(domainIdx))
	if err != nil {
		return nil, err
	}

	provider, err := poolString(pool, int64(providerIdx))
	if err != nil {
		return nil, err
	}

	return ISPPayload{ISP: isp, Domain: domain, Provider: provider}, nil
}

func (c *ispCodec) reset() {}

type proxyCodec struct{}

func (c *proxyCodec) encode(enc *Encoder, pool *StringPool, payload Payload) error {
	proxy, ok := payload.(ProxyPayload)
	if !ok {
		return fmt.Errorf("expected proxy payload, got %s", payload.Dataset())
	}

	idx, err := internString(pool, proxy.ProxyType)
	if err != nil {
		return err
	}

	enc.WriteUvarint(idx)

	return nil
}

func (c *proxyCodec) decode(dec *Decoder, pool []string) (Payload, error) {
	idx := dec.ReadUvarint()

	if dec.Failed() {
		return nil, ErrTruncated
	}

	proxyType, err := poolString(pool, int64(idx))
	if err != nil {
		return nil, err
	}

	return ProxyPayload{ProxyType: proxyType}, nil
}

func (c *proxyCodec) reset() {}

func poolString(pool []string, idx int64) (string, error) {
	if idx < 0 || idx >= int64(len(pool)) {
		return "", fmt.Errorf("%w: string index %d out of pool of %d", ErrTruncated, idx, len(pool))
	}

	return pool[idx], nil
}
