package cli

var ErrorText = errorText
