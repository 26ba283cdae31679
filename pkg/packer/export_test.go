package packer

var UnpackPath = unpackPath
