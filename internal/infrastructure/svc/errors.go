package svc

import "errors"

// ErrUnknownProvider 错误：未注册的行情提供方
var ErrUnknownProvider = errors.New("unknown feed provider")

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")
