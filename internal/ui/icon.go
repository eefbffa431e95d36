package ui

// 16x16 orange disc, PNG.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x37, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x05, 0x78,
	0x91, 0x25, 0xff, 0x1f, 0x1b, 0xa6, 0x48, 0x33, 0x51, 0x86, 0x10, 0xd2,
	0x8c, 0xd7, 0x10, 0x62, 0x35, 0x63, 0x35, 0x84, 0x54, 0xcd, 0x18, 0x86,
	0x8c, 0x1a, 0x40, 0x05, 0x03, 0x28, 0x8e, 0x46, 0xaa, 0x24, 0x24, 0xaa,
	0x24, 0x65, 0xaa, 0x64, 0x26, 0x52, 0x01, 0x00, 0x95, 0x20, 0x7c, 0x50,
	0xeb, 0xe2, 0x3a, 0x2b, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44,
	0xae, 0x42, 0x60, 0x82,
}
