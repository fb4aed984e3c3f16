package platform

import "errors"

// ErrNotConnected 当前没有可用的平台连接
var ErrNotConnected = errors.New("platform: not connected")
